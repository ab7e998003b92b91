// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: core_test.go — accept→handshake→login over real loopback TCP
// ─────────────────────────────────────────────────────────────────────────────

package proactor

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/simulo-server/beta173login/internal/constants"
	"github.com/simulo-server/beta173login/internal/session"
)

func newTestCore(t *testing.T) (*Core, int) {
	t.Helper()

	var c Core
	if err := c.Init(0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port, err := c.Addr()
	if err != nil {
		t.Fatalf("Addr: %v", err)
	}
	t.Cleanup(func() { _ = c.Deinit() })
	return &c, port
}

func dial(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func handshakeBytes(username string) []byte {
	u := []byte(username)
	buf := make([]byte, 1+2+2*len(u))
	buf[0] = constants.HandshakePacketID
	buf[1] = byte(len(u) >> 8)
	buf[2] = byte(len(u))
	for i, ch := range u {
		buf[3+i*2+1] = ch
	}
	return buf
}

func loginBytes(username string, protocolVersion int32) []byte {
	u := []byte(username)
	buf := make([]byte, 1+4+2+2*len(u)+8+1)
	buf[0] = constants.LoginPacketID
	buf[1] = byte(protocolVersion >> 24)
	buf[2] = byte(protocolVersion >> 16)
	buf[3] = byte(protocolVersion >> 8)
	buf[4] = byte(protocolVersion)
	buf[5] = byte(len(u) >> 8)
	buf[6] = byte(len(u))
	for i, ch := range u {
		buf[7+i*2+1] = ch
	}
	return buf
}

// pollUntil repeatedly calls Poll until at least want entries have been
// collected across ticks or timeout elapses.
func pollUntil(c *Core, queue *session.Queue, want int, timeout time.Duration) []session.Incoming {
	deadline := time.Now().Add(timeout)
	var collected []session.Incoming
	for time.Now().Before(deadline) {
		if n := c.Poll(queue); n > 0 {
			collected = append(collected, queue.Entries()...)
		}
		if len(collected) >= want {
			return collected
		}
		time.Sleep(2 * time.Millisecond)
	}
	return collected
}

func TestAcceptHandshakeLoginHandsOffSession(t *testing.T) {
	c, port := newTestCore(t)
	conn := dial(t, port)

	if _, err := conn.Write(handshakeBytes("alice")); err != nil {
		t.Fatalf("write handshake: %v", err)
	}

	var queue session.Queue
	resp, err := pollUntilReadFull(c, &queue, conn, constants.HandshakeResponseSize, 2*time.Second)
	if err != nil {
		t.Fatalf("read handshake response: %v", err)
	}
	if resp[0] != constants.HandshakePacketID {
		t.Fatalf("response packet id = %#x, want %#x", resp[0], constants.HandshakePacketID)
	}

	if _, err := conn.Write(loginBytes("alice", constants.SupportedProtocolVersion)); err != nil {
		t.Fatalf("write login: %v", err)
	}

	got := pollUntil(c, &queue, 1, 2*time.Second)
	if len(got) != 1 {
		t.Fatalf("got %d joined sessions, want 1", len(got))
	}

	name := got[0].Username
	if name[0] != 'a' || name[1] != 'l' || name[4] != 'e' || name[5] != 0 {
		t.Fatalf("unexpected username bytes: %v", name[:8])
	}
	if got[0].ProtocolVersion != constants.SupportedProtocolVersion {
		t.Fatalf("ProtocolVersion = %d, want %d", got[0].ProtocolVersion, constants.SupportedProtocolVersion)
	}
}

func TestMalformedHandshakeClosesConnection(t *testing.T) {
	c, port := newTestCore(t)
	conn := dial(t, port)

	// Wrong packet id, otherwise well-formed.
	bad := handshakeBytes("bob")
	bad[0] = 0x05
	if _, err := conn.Write(bad); err != nil {
		t.Fatalf("write: %v", err)
	}

	var queue session.Queue
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.Poll(&queue)
		one := make([]byte, 1)
		conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond))
		n, err := conn.Read(one)
		if n == 0 && err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return // connection closed by the core, as expected
		}
	}
	t.Fatal("connection was not closed after a malformed handshake")
}

func TestFragmentedHandshakeAcrossTicks(t *testing.T) {
	c, port := newTestCore(t)
	conn := dial(t, port)

	full := handshakeBytes("cid")
	var queue session.Queue

	for i, b := range full {
		if _, err := conn.Write([]byte{b}); err != nil {
			t.Fatalf("write byte %d: %v", i, err)
		}
		c.Poll(&queue)
		time.Sleep(2 * time.Millisecond)
	}

	resp, err := pollUntilReadFull(c, &queue, conn, constants.HandshakeResponseSize, 2*time.Second)
	if err != nil {
		t.Fatalf("read handshake response: %v", err)
	}
	if resp[0] != constants.HandshakePacketID {
		t.Fatalf("response packet id = %#x, want %#x", resp[0], constants.HandshakePacketID)
	}
}

// TestJoinQueueOverflowReleasesExcessConnections drives JoinQueueCapacity+1
// connections all the way to "login packet fully buffered, ready to be
// read" before calling Poll again, so every one of their login completions
// lands in the same drain batch — the only situation where the queue's
// capacity, not the driver's polling cadence, is what limits how many log
// in this tick.
func TestJoinQueueOverflowReleasesExcessConnections(t *testing.T) {
	c, port := newTestCore(t)

	total := constants.JoinQueueCapacity + 1
	conns := make([]net.Conn, total)
	var queue session.Queue

	// Phase 1: bring every connection to opReadLogin, one at a time,
	// confirming each one's handshake response before moving on so none
	// are left mid-handshake when phase 2 starts.
	for i := 0; i < total; i++ {
		conns[i] = dial(t, port)
		username := fmt.Sprintf("p%d", i)
		if _, err := conns[i].Write(handshakeBytes(username)); err != nil {
			t.Fatalf("write handshake %d: %v", i, err)
		}
		if _, err := pollUntilReadFull(c, &queue, conns[i], constants.HandshakeResponseSize, 2*time.Second); err != nil {
			t.Fatalf("read handshake response %d: %v", i, err)
		}
	}

	// Phase 2: write every login packet without calling Poll in between,
	// then give loopback delivery time to land all of them in their
	// sockets' receive buffers before the decisive Poll call.
	for i := 0; i < total; i++ {
		username := fmt.Sprintf("p%d", i)
		if _, err := conns[i].Write(loginBytes(username, constants.SupportedProtocolVersion)); err != nil {
			t.Fatalf("write login %d: %v", i, err)
		}
	}
	time.Sleep(150 * time.Millisecond)

	n := c.Poll(&queue)
	if n != constants.JoinQueueCapacity {
		t.Fatalf("Poll returned %d on the overflowing tick, want exactly %d", n, constants.JoinQueueCapacity)
	}
	if queue.Len() != constants.JoinQueueCapacity {
		t.Fatalf("queue.Len() = %d, want %d", queue.Len(), constants.JoinQueueCapacity)
	}
}

// pollUntilReadFull interleaves Poll calls with short, non-blocking-ish
// reads so the core gets to run its write-completion handler between read
// attempts, rather than blocking in a single long Read before Poll ever
// gets another turn.
func pollUntilReadFull(c *Core, queue *session.Queue, conn net.Conn, n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		c.Poll(queue)

		conn.SetReadDeadline(time.Now().Add(2 * time.Millisecond))
		read, err := conn.Read(buf[got:])
		got += read
		if got >= n {
			return buf, nil
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return buf[:got], err
		}
	}
	return buf[:got], fmt.Errorf("timed out after reading %d of %d bytes", got, n)
}
