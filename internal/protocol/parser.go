// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: parser.go — incremental handshake/login packet parsing
//
// Purpose:
//   - ReadHandshake and ReadLogin are called from inside a read-completion
//     handler every time enough bytes might have arrived. Both are pure
//     functions over the connection's own buffer — no I/O, no allocation.
//
// Notes:
//   - ReadHandshake reports how many more bytes are still needed (spec's
//     -1 / 0 / n>0 contract) because the packet's own length isn't known
//     until the 2-byte string-length header has arrived.
//   - ReadLogin doesn't need that contract: by the time it's called, the
//     caller has already sized the buffer target to the exact login
//     packet size computed from the handshake's username length (the
//     client sends the same username twice), so there's nothing left to
//     wait for — only a structural ok/fail.
// ─────────────────────────────────────────────────────────────────────────────

package protocol

import (
	"github.com/simulo-server/beta173login/internal/constants"
	"github.com/simulo-server/beta173login/internal/wire"
)

// minHandshakeSize is the smallest possible handshake: id + length header +
// one code unit.
const minHandshakeSize = 1 + 2 + 2*1

// minLoginSize is the smallest possible login packet: id + version + length
// header + one code unit + seed + dimension.
const minLoginSize = 1 + 4 + 2 + 2*1 + 8 + 1

// ReadHandshake attempts to parse a handshake packet out of buf[:filled].
//
// Returns -1 if the buffered bytes are already known to be malformed
// (wrong packet id, or a username length outside [1, 16]); 0 if a complete,
// valid handshake has been parsed into the returned Handshake; or a
// positive n meaning at
// least n more bytes must be read before parsing can make further
// progress.
func ReadHandshake(buf []byte, filled int) (int, Handshake) {
	if filled < minHandshakeSize {
		return minHandshakeSize - filled, Handshake{}
	}

	if buf[0] != constants.HandshakePacketID {
		return -1, Handshake{}
	}

	usernameLen := wire.ReadStringLen(buf[1:3])
	if usernameLen < 1 || usernameLen > constants.MaxUsernameCodePoints {
		return -1, Handshake{}
	}

	required := 1 + wire.StringSize(int(usernameLen))
	if filled < required {
		return required - filled, Handshake{}
	}

	return 0, Handshake{UsernameLen: usernameLen}
}

// ReadLogin attempts to parse a login packet out of buf[:filled]. Returns
// true and a populated Login on success. Does not check protocol_version
// or consult the join queue — those are policy decisions made by the
// caller after a structurally valid packet comes back.
func ReadLogin(buf []byte, filled int) (Login, bool) {
	if filled < minLoginSize {
		return Login{}, false
	}

	if buf[0] != constants.LoginPacketID {
		return Login{}, false
	}

	protocolVersion := wire.ReadI32(buf[1:5])
	usernameLen := wire.ReadStringLen(buf[5:7])

	if usernameLen < 1 || usernameLen > constants.MaxUsernameCodePoints {
		return Login{}, false
	}
	if LoginPacketSize(usernameLen) > filled {
		return Login{}, false
	}

	var login Login
	login.ProtocolVersion = protocolVersion
	login.UsernameLen = usernameLen

	if !wire.ReadStringBody(buf[7:], usernameLen, login.Username[:usernameLen]) {
		return Login{}, false
	}

	tail := 7 + 2*int(usernameLen)
	login.MapSeed = wire.ReadI64(buf[tail : tail+8])
	login.Dimension = buf[tail+8]

	return login, true
}
