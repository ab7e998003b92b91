// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: record.go — per-connection state, one slab slot each
//
// Purpose:
//   - Everything Poll needs to resume a connection's state machine from a
//     single readiness notification: which op it's waiting on, how much
//     of its fixed buffer is filled, and how much is needed before that
//     op is considered complete.
// ─────────────────────────────────────────────────────────────────────────────

package proactor

import (
	"time"

	"github.com/simulo-server/beta173login/internal/constants"
)

// opKind is the connection's current position in the
// accept → handshake → login → handed-off/released state machine.
type opKind uint8

const (
	opReadHandshake opKind = iota
	opWriteHandshake
	opReadLogin
	opHandedOff
)

// record is one connection's slab-resident state. Its buffer is sized to
// the largest packet this core ever needs to hold, the full login packet —
// the handshake and its response both fit comfortably inside it.
type record struct {
	fd           int
	op           opKind
	buf          [constants.MaxLoginPacketSize]byte
	bufUsed      int
	targetBufLen int
	acceptedAt   time.Time
}
