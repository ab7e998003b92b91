// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — compile-time tunables for the login front-end
//
// Purpose:
//   - Defines the fixed capacities and protocol constants the core needs at
//     compile time: slab size, join queue size, buffer sizing, timeouts.
//
// Notes:
//   - No runtime logic here — every value must be compile-time resolvable.
//   - internal/config may override Port from an optional config.json at
//     startup; MaxConnections/JoinQueueCapacity may appear there only with
//     the values compiled in here. Nothing in this file changes after that,
//     and nothing on the per-tick path reads config.json directly.
// ─────────────────────────────────────────────────────────────────────────────

package constants

import "time"

// ───────────────────────────── Listener defaults ──────────────────────────

const (
	// DefaultPort is the standard Beta 1.7.3 server port.
	DefaultPort = 25565

	// ListenBacklog is the backlog passed to listen(2), per spec.
	ListenBacklog = 16
)

// ───────────────────────────── Slab sizing ─────────────────────────────────

const (
	// MaxConnections bounds the connection slab. Chosen to match the
	// reference implementation's fixed-capacity connection table; excess
	// accepts beyond this are closed immediately rather than queued.
	MaxConnections = 256

	// JoinQueueCapacity bounds the per-tick join queue the driver drains.
	// Kept well under MaxConnections since logins complete far less often
	// than accepts during any given tick, but still finite so a login
	// storm can't grow the queue unbounded.
	JoinQueueCapacity = 64
)

// ───────────────────────────── Wire sizing ─────────────────────────────────

const (
	// MaxUsernameCodePoints is the longest username the protocol allows.
	MaxUsernameCodePoints = 16

	// HandshakeHeaderSize is the number of bytes needed before the
	// handshake's variable-length username size is even knowable:
	// 1 (packet id) + 2 (i16 string length).
	HandshakeHeaderSize = 3

	// MaxLoginPacketSize is the largest possible login packet: 1 (id) +
	// 4 (protocol version) + 2 (username length) + 2*16 (UTF-16BE
	// username) + 8 (map seed) + 1 (dimension) = 48 bytes. Every
	// connection's receive buffer is sized to hold exactly this much,
	// since the core never needs more than one packet buffered at a time.
	MaxLoginPacketSize = 1 + 4 + 2 + 2*MaxUsernameCodePoints + 8 + 1

	// HandshakeResponseSize is the fixed size of the offline-mode
	// handshake reply: 1 (id) + 2 (string length = 1) + 2 ('-' code unit).
	HandshakeResponseSize = 5
)

// ───────────────────────────── Protocol constants ──────────────────────────

const (
	// HandshakePacketID identifies the inbound/outbound handshake packet.
	HandshakePacketID = 0x02

	// LoginPacketID identifies the inbound login request packet.
	LoginPacketID = 0x01

	// SupportedProtocolVersion is the only protocol_version this core will
	// accept — Beta 1.7.3. Earlier drafts of the reference implementation
	// used 7 (Classic); this core fixes the target at 14.
	SupportedProtocolVersion = 14

	// OfflineMarker is the single code unit sent back in the handshake
	// response body in offline mode.
	OfflineMarker = '-'
)

// ───────────────────────────── Idle timeouts ────────────────────────────────

const (
	// HandshakeTimeout bounds how long a slot may sit in ReadingHandshake
	// before the core releases it. Not required by the core's state
	// machine (spec permits a connection to sit indefinitely); this core
	// adds it as an extension of its own. Counted from the moment the
	// connection was accepted.
	HandshakeTimeout = 10 * time.Second

	// LoginTimeout bounds how long a slot may sit in ReadingLogin. Like
	// HandshakeTimeout it is counted from the moment the connection was
	// accepted, not from the end of the handshake exchange, so time spent
	// in the handshake stages counts against it too.
	LoginTimeout = 10 * time.Second
)

// ───────────────────────────── Driver pacing ────────────────────────────────

const (
	// TickInterval is the nominal driver poll cadence: 20ms, i.e. 50Hz.
	TickInterval = 20 * time.Millisecond
)
