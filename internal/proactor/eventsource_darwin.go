//go:build darwin
// +build darwin

// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: eventsource_darwin.go — kqueue-backed readiness source
//
// Notes:
//   - Unlike epoll's single "interest set per fd" event, kqueue tracks
//     read and write interest as two independent filters on the same
//     Ident. Switching a connection from reading to writing (or back)
//     means deleting one filter and adding the other, not modifying one
//     in place.
//   - EVFILT_READ/WRITE need the real fd in Ident for the kernel to
//     monitor it; Udata carries the slab key instead, the same way the
//     epoll source repurposes the event's fd slot. Udata's static type is
//     a pointer, but the value stored in it is never dereferenced — it's
//     a pointer-sized integer smuggled through a pointer-shaped field.
// ─────────────────────────────────────────────────────────────────────────────

package proactor

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/simulo-server/beta173login/internal/slab"
)

// acceptConn accepts one pending connection off listenerFD. Darwin's
// accept(2) has no accept4-style flags argument, so non-blocking and
// close-on-exec are applied as separate fcntl calls right after.
func acceptConn(listenerFD int) (int, error) {
	fd, _, err := unix.Accept(listenerFD)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

type kqueueSource struct {
	kq int
}

func newEventSource() eventSource {
	return &kqueueSource{kq: -1}
}

func (s *kqueueSource) open(listenerFD int) error {
	fd, err := unix.Kqueue()
	if err != nil {
		return err
	}
	s.kq = fd
	return s.watchRead(listenerTag, listenerFD)
}

func (s *kqueueSource) changeFilter(tag slab.Key, fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
		Udata:  (*byte)(unsafe.Pointer(uintptr(tag))), //nolint:govet
	}
	_, err := unix.Kevent(s.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (s *kqueueSource) watchRead(tag slab.Key, fd int) error {
	if err := s.changeFilter(0, fd, unix.EVFILT_WRITE, unix.EV_DELETE); err != nil && err != unix.ENOENT {
		return err
	}
	return s.changeFilter(tag, fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
}

func (s *kqueueSource) watchWrite(tag slab.Key, fd int) error {
	if err := s.changeFilter(0, fd, unix.EVFILT_READ, unix.EV_DELETE); err != nil && err != unix.ENOENT {
		return err
	}
	return s.changeFilter(tag, fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE)
}

func (s *kqueueSource) forget(fd int) error {
	_ = s.changeFilter(0, fd, unix.EVFILT_READ, unix.EV_DELETE)
	_ = s.changeFilter(0, fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	return nil
}

func (s *kqueueSource) drain(out []readiness) (int, error) {
	var buf [eventBatchSize]unix.Kevent_t
	var timeout unix.Timespec // zeroed: return immediately, non-blocking

	n, err := unix.Kevent(s.kq, nil, buf[:], &timeout)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		ev := buf[i]
		out[i] = readiness{
			tag:      slab.Key(uintptr(unsafe.Pointer(ev.Udata))),
			readable: ev.Filter == unix.EVFILT_READ,
			writable: ev.Filter == unix.EVFILT_WRITE,
			hangup:   ev.Flags&unix.EV_EOF != 0,
		}
	}
	return n, nil
}

func (s *kqueueSource) close() error {
	if s.kq < 0 {
		return nil
	}
	return unix.Close(s.kq)
}
