// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: config.go — optional startup overlay for the compile-time
// tunables in internal/constants
//
// Purpose:
//   - Everything the core needs at a steady state lives in
//     internal/constants as compile-time consts. This package exists only
//     to let a deployment override Port from a config.json sitting next to
//     the binary, without touching anything on the per-tick path.
//     MaxConnections and JoinQueueCapacity may also appear there, but only
//     with the compiled-in values; any other value is rejected.
//
// Notes:
//   - Absence of config.json is not an error: a fresh checkout with no
//     file at all runs on the constants package's defaults.
//   - Decoded with sonnet instead of encoding/json, matching the decoder
//     the teacher already reaches for (syncharvester's block/log RPC
//     responses) rather than introducing a second JSON library for the
//     same job.
// ─────────────────────────────────────────────────────────────────────────────

package config

import (
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"

	"github.com/simulo-server/beta173login/internal/constants"
)

// Overlay holds the subset of internal/constants values a deployment may
// override. Zero value means "use the compiled-in default" for every
// field — a config.json that only sets one key leaves the others alone.
type Overlay struct {
	Port              int `json:"port"`
	MaxConnections    int `json:"max_connections"`
	JoinQueueCapacity int `json:"join_queue_capacity"`
}

// Resolved is the effective startup configuration after applying an
// Overlay, if any, on top of internal/constants' defaults.
type Resolved struct {
	Port              int
	MaxConnections    int
	JoinQueueCapacity int
}

// Load reads path (typically "config.json" next to the binary) and
// applies any fields it sets on top of internal/constants' defaults. A
// missing file is not an error and yields the unmodified defaults; a
// present-but-malformed file is.
//
// MaxConnections and JoinQueueCapacity back fixed-size arrays
// (slab.Table, session.Queue) sized by internal/constants at compile
// time, so this build can't actually grow or shrink them at startup —
// an overlay value that disagrees with the compiled-in constant is
// reported as an error rather than silently ignored, since silently
// accepting it would leave Resolved reporting a capacity the slab and the
// join queue do not have.
func Load(path string) (Resolved, error) {
	resolved := Resolved{
		Port:              constants.DefaultPort,
		MaxConnections:    constants.MaxConnections,
		JoinQueueCapacity: constants.JoinQueueCapacity,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return resolved, nil
		}
		return resolved, fmt.Errorf("config: read %s: %w", path, err)
	}

	var overlay Overlay
	if err := sonnet.Unmarshal(data, &overlay); err != nil {
		return resolved, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if overlay.Port != 0 {
		resolved.Port = overlay.Port
	}
	if overlay.MaxConnections != 0 {
		if overlay.MaxConnections != constants.MaxConnections {
			return resolved, fmt.Errorf("config: max_connections=%d but this build's slab capacity is fixed at %d",
				overlay.MaxConnections, constants.MaxConnections)
		}
		resolved.MaxConnections = overlay.MaxConnections
	}
	if overlay.JoinQueueCapacity != 0 {
		if overlay.JoinQueueCapacity != constants.JoinQueueCapacity {
			return resolved, fmt.Errorf("config: join_queue_capacity=%d but this build's join queue is fixed at %d",
				overlay.JoinQueueCapacity, constants.JoinQueueCapacity)
		}
		resolved.JoinQueueCapacity = overlay.JoinQueueCapacity
	}

	return resolved, nil
}
