// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: queue.go — bounded join-queue handoff between core and driver
//
// Purpose:
//   - The single channel through which the network core hands freshly
//     logged-in connections to whatever embeds it. Core.Poll resets it at
//     the start of every tick and fills it as logins complete; the driver
//     reads Entries() after Poll returns and must finish draining before
//     the next Poll call reuses the backing array — never touched
//     concurrently, since both happen on the same goroutine inside the
//     same tick.
//
// Notes:
//   - Capacity is fixed at constants.JoinQueueCapacity. Once full, Push
//     reports false and the core releases the connection that would have
//     been queued (closing its socket and freeing its slab slot).
// ─────────────────────────────────────────────────────────────────────────────

package session

import "github.com/simulo-server/beta173login/internal/constants"

// Incoming is a single completed login handed off to the driver.
type Incoming struct {
	// Handle identifies the connection to the core's own slab table: the
	// slab.Key value, stored as a plain int32 (slab.Key's underlying
	// type) so the driver does not need to import slab.
	Handle int32

	// Username holds up to constants.MaxUsernameCodePoints bytes of the
	// player's ASCII username. Null-terminated if the name is shorter
	// than the buffer; the full buffer is meaningful if the name fills
	// it exactly, with no trailing NUL.
	Username [constants.MaxUsernameCodePoints]byte

	ProtocolVersion int32
	MapSeed         int64
	Dimension       uint8
}

// Queue is a fixed-capacity buffer reset once per tick. It is not
// safe for concurrent use; the core and the driver alternate turns on the
// same goroutine.
type Queue struct {
	entries [constants.JoinQueueCapacity]Incoming
	len     int
}

// Push appends entry to the queue. Returns false if the queue is already
// at capacity and entry was not appended.
func (q *Queue) Push(entry Incoming) bool {
	if q.len >= constants.JoinQueueCapacity {
		return false
	}
	q.entries[q.len] = entry
	q.len++
	return true
}

// Len returns the number of entries currently queued.
func (q *Queue) Len() int {
	return q.len
}

// Entries returns the queued entries since the last Reset. The returned
// slice aliases the queue's own backing array and is only valid until the
// next Push or Reset.
func (q *Queue) Entries() []Incoming {
	return q.entries[:q.len]
}

// Reset empties the queue. Called by Core.Poll itself at the start of
// every tick — the driver's job is only to finish draining the previous
// tick's entries before calling Poll again.
func (q *Queue) Reset() {
	q.len = 0
}

// UsernameString returns the player's username as a Go string, stopping
// at the first NUL (or the full buffer, if the name filled it exactly).
func (in Incoming) UsernameString() string {
	for i, b := range in.Username {
		if b == 0 {
			return string(in.Username[:i])
		}
	}
	return string(in.Username[:])
}

// PutUsername copies src into dst, truncating to the buffer's capacity and
// null-terminating only when src is strictly shorter than the buffer —
// matching Incoming.Username's "full buffer means no terminator" rule.
func PutUsername(dst *[constants.MaxUsernameCodePoints]byte, src []uint16) {
	n := len(src)
	if n > constants.MaxUsernameCodePoints {
		n = constants.MaxUsernameCodePoints
	}
	for i := 0; i < n; i++ {
		dst[i] = byte(src[i])
	}
	if n < constants.MaxUsernameCodePoints {
		dst[n] = 0
	}
}
