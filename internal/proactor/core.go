// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: core.go — connection acceptance and login-handshake event loop
//
// Purpose:
//   - Drives every accepted connection through
//     accept → ReadHandshake → WriteHandshake → ReadLogin → HandedOff (or
//     Released at any step) using one non-blocking drain of readiness
//     events per Poll call. No goroutines, no locks: everything here runs
//     on the caller's goroutine, start to finish, once per tick.
//
// Notes:
//   - Every exported method follows spec's error-propagation split: Init
//     and Listen return error because they're startup operations the
//     driver can legitimately fail to recover from; Poll never does — a
//     bad accept, a dead socket, a malformed packet are all per-connection
//     outcomes handled by releasing that one slot and logging through
//     internal/debug, never by surfacing an error from Poll itself.
// ─────────────────────────────────────────────────────────────────────────────

package proactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/simulo-server/beta173login/internal/constants"
	"github.com/simulo-server/beta173login/internal/debug"
	"github.com/simulo-server/beta173login/internal/protocol"
	"github.com/simulo-server/beta173login/internal/session"
	"github.com/simulo-server/beta173login/internal/slab"
)

// Core is the connection-acceptance and login-handshake network core. Zero
// value is not usable; construct via Init.
type Core struct {
	listenerFD int
	source     eventSource
	table      *slab.Table[record]
	readyBuf   [eventBatchSize]readiness
}

// Init creates the listening socket and binds it to port, but does not yet
// call listen(2) — mirrors the split between net_init and net_listen in
// the reference implementation, so a caller can finish other startup work
// (loading config, opening the session store) between the two without a
// half-listening socket sitting around.
func (c *Core) Init(port int) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("proactor: socket: %w", err)
	}

	// SOCK_NONBLOCK/SOCK_CLOEXEC as socket(2) type bits are a Linux
	// extension kqueue's platform doesn't share, so both flags are
	// applied the portable way instead of baked into the Socket call.
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("proactor: set listener non-blocking: %w", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("proactor: setsockopt SO_REUSEADDR: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("proactor: bind: %w", err)
	}

	c.listenerFD = fd
	c.table = slab.New[record]()
	c.source = newEventSource()
	return nil
}

// Listen starts accepting connections: calls listen(2) and registers the
// listener with the platform event source.
func (c *Core) Listen() error {
	if err := unix.Listen(c.listenerFD, constants.ListenBacklog); err != nil {
		return fmt.Errorf("proactor: listen: %w", err)
	}
	return c.source.open(c.listenerFD)
}

// Addr returns the port the listener is actually bound to. Mainly useful
// when Init was called with port 0 to let the OS pick an ephemeral one,
// as tests do.
func (c *Core) Addr() (int, error) {
	sa, err := unix.Getsockname(c.listenerFD)
	if err != nil {
		return 0, fmt.Errorf("proactor: getsockname: %w", err)
	}
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("proactor: unexpected sockaddr type %T", sa)
	}
	return v4.Port, nil
}

// Deinit closes every live connection and the listener itself. Safe to
// call once, after the driver's final tick.
func (c *Core) Deinit() error {
	c.table.Each(func(key slab.Key, conn *record) {
		_ = c.source.forget(conn.fd)
		_ = unix.Close(conn.fd)
		c.table.Release(key)
	})

	if err := c.source.close(); err != nil {
		return fmt.Errorf("proactor: close event source: %w", err)
	}
	return unix.Close(c.listenerFD)
}

// Poll drains one batch of readiness events, advances every affected
// connection's state machine, and appends each login that completes this
// tick to queue. It resets queue itself before doing anything else, so
// the driver must have finished consuming the previous tick's entries by
// the time it calls Poll again. Returns the number of sessions appended —
// no error ever crosses this boundary.
func (c *Core) Poll(queue *session.Queue) int {
	queue.Reset()

	n, err := c.source.drain(c.readyBuf[:])
	if err != nil {
		debug.DropError("drain", err)
		c.expireStale()
		return 0
	}

	accepted := 0
	for i := 0; i < n; i++ {
		ev := c.readyBuf[i]

		if ev.tag == listenerTag {
			c.handleAccept()
			continue
		}

		if !c.table.InUse(ev.tag) {
			continue // stale event for a slot released earlier this batch
		}

		conn := c.table.Get(ev.tag)

		if ev.hangup {
			c.release(ev.tag, conn, "peer hung up")
			continue
		}

		switch conn.op {
		case opReadHandshake, opReadLogin:
			assertTransition(!ev.writable, conn.op, "write-ready event in a read state")
			if ev.readable && c.handleRead(ev.tag, conn, queue) {
				accepted++
			}
		case opWriteHandshake:
			assertTransition(!ev.readable, conn.op, "read-ready event in the write state")
			if ev.writable {
				c.handleWrite(ev.tag, conn)
			}
		case opHandedOff:
			// forget() should have removed this fd from the event
			// source already; a stray event here is harmless.
		default:
			assertTransition(false, conn.op, "unknown op")
		}
	}

	c.expireStale()
	return accepted
}

func (c *Core) handleAccept() {
	for {
		fd, err := acceptConn(c.listenerFD)
		if err != nil {
			if err != unix.EAGAIN {
				debug.DropError("accept", err)
			}
			return
		}

		key, ok := c.table.Alloc()
		if !ok {
			debug.DropMessage("accept", "out of connection slots")
			_ = unix.Close(fd)
			continue
		}

		conn := c.table.Get(key)
		conn.fd = fd
		conn.op = opReadHandshake
		conn.bufUsed = 0
		conn.targetBufLen = 1
		conn.acceptedAt = time.Now()

		if err := c.source.watchRead(key, fd); err != nil {
			c.release(key, conn, "watch accepted socket")
		}
	}
}

// handleRead performs one non-blocking recv for conn and, if that fills
// its current target, advances the state machine. Returns true exactly
// when this call is the one that hands the connection off to queue.
func (c *Core) handleRead(key slab.Key, conn *record, queue *session.Queue) bool {
	n, err := unix.Read(conn.fd, conn.buf[conn.bufUsed:conn.targetBufLen])
	if err != nil {
		if err == unix.EAGAIN {
			return false
		}
		c.release(key, conn, "read")
		return false
	}
	if n == 0 {
		c.release(key, conn, "peer closed during read")
		return false
	}

	conn.bufUsed += n
	if conn.bufUsed < conn.targetBufLen {
		return false // stays armed for read; more bytes needed
	}

	switch conn.op {
	case opReadHandshake:
		c.handleHandshakeComplete(key, conn)
		return false
	case opReadLogin:
		return c.handleLoginComplete(key, conn, queue)
	default:
		return false
	}
}

func (c *Core) handleHandshakeComplete(key slab.Key, conn *record) {
	need, hs := protocol.ReadHandshake(conn.buf[:], conn.bufUsed)
	switch {
	case need < 0:
		c.release(key, conn, "malformed handshake")

	case need == 0:
		conn.targetBufLen = protocol.LoginPacketSize(hs.UsernameLen)
		conn.op = opWriteHandshake
		conn.bufUsed = 0 // reused as a write-progress counter while opWriteHandshake
		if err := c.source.watchWrite(key, conn.fd); err != nil {
			c.release(key, conn, "watch for handshake response write")
		}

	default:
		conn.targetBufLen += need
		// stays armed for read; epoll/kqueue will refire once more
		// bytes arrive, same as a handshake split across ticks
	}
}

func (c *Core) handleWrite(key slab.Key, conn *record) {
	n, err := unix.Write(conn.fd, protocol.HandshakeResponse[conn.bufUsed:])
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		c.release(key, conn, "write handshake response")
		return
	}

	conn.bufUsed += n
	if conn.bufUsed < len(protocol.HandshakeResponse) {
		return // stays armed for write; remainder goes out next time
	}

	conn.op = opReadLogin
	conn.bufUsed = 0
	if err := c.source.watchRead(key, conn.fd); err != nil {
		c.release(key, conn, "watch for login read")
	}
}

func (c *Core) handleLoginComplete(key slab.Key, conn *record, queue *session.Queue) bool {
	login, ok := protocol.ReadLogin(conn.buf[:], conn.bufUsed)
	if !ok {
		c.release(key, conn, "malformed login")
		return false
	}

	if login.ProtocolVersion != constants.SupportedProtocolVersion {
		c.release(key, conn, "unsupported protocol version")
		return false
	}

	var incoming session.Incoming
	incoming.Handle = int32(key)
	incoming.ProtocolVersion = login.ProtocolVersion
	incoming.MapSeed = login.MapSeed
	incoming.Dimension = login.Dimension
	session.PutUsername(&incoming.Username, login.Username[:login.UsernameLen])

	if !queue.Push(incoming) {
		c.release(key, conn, "join queue full")
		return false
	}

	if err := c.source.forget(conn.fd); err != nil {
		debug.DropError("forget handed-off socket", err)
	}
	conn.op = opHandedOff
	return true
}

// assertTransition aborts with a descriptive panic when cond is false,
// which only happens when Poll's dispatch switch is handed a readiness
// event that the connection's current op cannot legally receive (e.g. a
// write-ready event while still ReadingHandshake). That combination means
// the event source or the state machine itself is broken, not something
// this connection's own bytes caused, so it is not recoverable by
// releasing the slot the way a malformed packet or read error is.
func assertTransition(cond bool, op opKind, what string) {
	if !cond {
		panic(fmt.Sprintf("proactor: invariant violated for op %d: %s", op, what))
	}
}

func (c *Core) release(key slab.Key, conn *record, reason string) {
	debug.DropMessage("release", reason)
	_ = c.source.forget(conn.fd)
	_ = unix.Close(conn.fd)
	c.table.Release(key)
}

// expireStale releases any connection that has been sitting in the
// handshake or login stages longer than its timeout. Run once per Poll
// call rather than per completion, so a quiet tick with no readiness
// events still reclaims slots abandoned by clients that connected and
// then went silent.
func (c *Core) expireStale() {
	now := time.Now()
	c.table.Each(func(key slab.Key, conn *record) {
		if conn.op == opHandedOff {
			return
		}

		deadline := constants.LoginTimeout
		if conn.op == opReadHandshake || conn.op == opWriteHandshake {
			deadline = constants.HandshakeTimeout
		}

		if now.Sub(conn.acceptedAt) > deadline {
			c.release(key, conn, "timed out")
		}
	})
}
