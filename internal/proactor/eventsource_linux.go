//go:build linux
// +build linux

// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: eventsource_linux.go — epoll-backed readiness source
//
// Notes:
//   - Level-triggered (no EPOLLET): a socket that's still readable after
//     Core drains it just reports ready again on the next drain, which is
//     exactly the "leave it armed, epoll will refire" behavior the
//     handshake/login read loop relies on when a packet arrives
//     fragmented across multiple ticks.
//   - The epoll_event's fd/data field carries the slab key, not the real
//     fd — the kernel already knows the real fd from the EpollCtl target
//     argument, so this slot is free for our own tag.
// ─────────────────────────────────────────────────────────────────────────────

package proactor

import (
	"golang.org/x/sys/unix"

	"github.com/simulo-server/beta173login/internal/slab"
)

// acceptConn accepts one pending connection off listenerFD, returning it
// already non-blocking and close-on-exec — accept4's flags argument makes
// this a single syscall on Linux, where accept4 is available.
func acceptConn(listenerFD int) (int, error) {
	fd, _, err := unix.Accept4(listenerFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return fd, err
}

type epollSource struct {
	epfd int
}

func newEventSource() eventSource {
	return &epollSource{epfd: -1}
}

func (s *epollSource) open(listenerFD int) error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	s.epfd = fd
	return s.watchRead(listenerTag, listenerFD)
}

func (s *epollSource) setInterest(tag slab.Key, fd int, events uint32) error {
	ev := &unix.EpollEvent{Events: events, Fd: int32(tag)}
	err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, ev)
	if err == unix.ENOENT {
		err = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, ev)
	}
	return err
}

func (s *epollSource) watchRead(tag slab.Key, fd int) error {
	return s.setInterest(tag, fd, unix.EPOLLIN)
}

func (s *epollSource) watchWrite(tag slab.Key, fd int) error {
	return s.setInterest(tag, fd, unix.EPOLLOUT)
}

func (s *epollSource) forget(fd int) error {
	err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (s *epollSource) drain(out []readiness) (int, error) {
	var buf [eventBatchSize]unix.EpollEvent

	n, err := unix.EpollWait(s.epfd, buf[:], 0)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		ev := buf[i]
		out[i] = readiness{
			tag:      slab.Key(ev.Fd),
			readable: ev.Events&unix.EPOLLIN != 0,
			writable: ev.Events&unix.EPOLLOUT != 0,
			hangup:   ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (s *epollSource) close() error {
	if s.epfd < 0 {
		return nil
	}
	return unix.Close(s.epfd)
}
