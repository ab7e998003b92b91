// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: packets.go — parsed packet shapes for the login handshake
//
// Purpose:
//   - Defines the in-memory form of the two inbound packets this core
//     understands (handshake 0x02, login 0x01) and the one fixed outbound
//     packet it ever sends.
// ─────────────────────────────────────────────────────────────────────────────

package protocol

import "github.com/simulo-server/beta173login/internal/constants"

// Handshake is the parsed form of the client handshake packet. The
// username bytes themselves are never materialized — offline mode doesn't
// need them, and the login packet re-sends the username anyway.
type Handshake struct {
	UsernameLen int16
}

// Login is the parsed form of the login request packet.
type Login struct {
	ProtocolVersion int32
	UsernameLen     int16
	Username        [constants.MaxUsernameCodePoints]uint16
	MapSeed         int64
	Dimension       uint8
}

// HandshakeResponse is the fixed 5-byte offline-mode handshake reply:
// packet id 0x02, string length 1, single code unit '-'. The '-' is the
// offline-mode marker understood by the client.
var HandshakeResponse = [constants.HandshakeResponseSize]byte{
	constants.HandshakePacketID,
	0x00, 0x01,
	0x00, constants.OfflineMarker,
}

// LoginPacketSize returns the exact byte length of a login packet carrying
// a username of usernameLen code units.
func LoginPacketSize(usernameLen int16) int {
	return 1 + 4 + 2 + 2*int(usernameLen) + 8 + 1
}
