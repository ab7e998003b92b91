// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: eventsource.go — readiness-notification surface behind Core
//
// Purpose:
//   - Narrows epoll (Linux) and kqueue (Darwin) down to the handful of
//     operations Core actually needs, so core.go reads the same on both
//     platforms. post_accept/post_recv/post_send themselves are performed
//     by Core directly against the fd once this interface reports
//     readiness — this only ever synthesizes the "something is ready"
//     half of the proactor contract, never the syscall itself.
// ─────────────────────────────────────────────────────────────────────────────

package proactor

import "github.com/simulo-server/beta173login/internal/slab"

// listenerTag is the completion tag for events on the listening socket.
// No accepted connection's slab.Key can ever equal it, since slab.Key
// only ranges over [0, constants.MaxConnections).
const listenerTag = slab.Key(-1)

// eventBatchSize bounds how many readiness events a single drain call
// reports. Draining in bounded batches keeps Poll's per-tick cost
// predictable even under a connection-accept burst; anything left ready
// is picked back up on the very next drain.
const eventBatchSize = 128

// readiness is one decoded notification: a slot (or the listener) became
// readable, writable, or hung up.
type readiness struct {
	tag      slab.Key
	readable bool
	writable bool
	hangup   bool
}

// eventSource is implemented by eventsource_linux.go (epoll) and
// eventsource_darwin.go (kqueue).
type eventSource interface {
	// open creates the underlying polling instance and registers
	// listenerFD for read (accept) readiness under listenerTag.
	open(listenerFD int) error

	// watchRead arms fd for read readiness under tag, replacing any
	// write-interest previously registered for it.
	watchRead(tag slab.Key, fd int) error

	// watchWrite arms fd for write readiness under tag, replacing any
	// read-interest previously registered for it.
	watchWrite(tag slab.Key, fd int) error

	// forget removes fd from the polling instance entirely. Called
	// before closing a connection's socket, and when a connection is
	// handed off to the driver and the core stops servicing it.
	forget(fd int) error

	// drain reports ready events into out without blocking beyond a
	// single non-blocking poll, returning how many were written.
	drain(out []readiness) (int, error)

	// close tears down the polling instance itself.
	close() error
}
