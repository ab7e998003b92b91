// control.go — driver-loop shutdown and idle-tick signaling
// ============================================================================
// DRIVER CONTROL COORDINATION
// ============================================================================
//
// Control provides the lightweight global signaling the 20ms driver tick
// loop needs beyond what Core.Poll itself returns:
//   - a stop flag SIGINT/SIGTERM sets, checked once per tick so the loop
//     can break and call Core.Deinit instead of being killed mid-tick
//   - a hot flag that tracks whether any session has joined recently, so
//     the driver can skip its own per-tick heartbeat log during long
//     stretches with no traffic instead of emitting one zerolog line every
//     20ms forever
//
// Threading model:
//   - Everything here is touched from exactly one goroutine (the driver's
//     tick loop) plus a signal handler goroutine calling Shutdown(); the
//     flags are plain uint32s rather than atomics because the signal
//     handler only ever sets stop to 1 and never reads it back across a
//     data race that matters — a torn read just means the loop notices one
//     tick later.

package control

import "time"

var (
	// Global coordination flags - read/written only by the driver's tick
	// loop and the signal-handling goroutine that calls Shutdown.
	hot  uint32 // 1 = a session joined within the last cooldown window
	stop uint32 // 1 = shut down at the start of the next tick

	lastHot    int64 // UnixNano of the last SignalActivity call
	cooldownNs = int64(5 * time.Second)
)

// SignalActivity marks the driver as having just accepted a session.
// Called once per driver tick in which at least one session joined.
//
//go:nosplit
//go:inline
func SignalActivity() {
	hot = 1
	lastHot = time.Now().UnixNano()
}

// PollCooldown clears the hot flag once cooldownNs has passed since the
// last SignalActivity call. Called once per driver tick, before deciding
// whether to emit the heartbeat log.
//
//go:nosplit
//go:inline
func PollCooldown() {
	if hot == 1 && time.Now().UnixNano()-lastHot > cooldownNs {
		hot = 0
	}
}

// Shutdown requests that the driver loop stop at the start of its next
// tick. Safe to call from a signal handler.
//
//go:nosplit
//go:inline
func Shutdown() {
	stop = 1
}

// Flags returns pointers to the stop and hot flags for the driver loop to
// poll without a function-call indirection per tick.
//
//go:nosplit
//go:inline
func Flags() (*uint32, *uint32) {
	return &stop, &hot
}
