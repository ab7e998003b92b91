// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — cold-path error/diagnostic logging for the core
//
// Purpose:
//   - Logs the failure paths inside Poll()'s completion handlers — a
//     malformed handshake, a dead socket, an out-of-slots accept — without
//     routing every per-connection failure through zerolog's structured
//     encoder, since these fire once per misbehaving client, not once per
//     tick.
//
// Notes:
//   - Writes straight to stderr; no formatting beyond string
//     concatenation, on purpose. The driver's own startup/shutdown logging
//     goes through zerolog (see cmd/server) — this package is strictly for
//     inside-the-loop diagnostics.
//
// ⚠️ Never invoke from a hot per-byte path — only from terminal outcomes of
// a completion handler (one release, one log line).
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "os"

// DropError logs prefix alongside err's message, or just prefix if err is
// nil (used for state-change notices that aren't themselves errors).
//
//go:nosplit
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		write(prefix + ": " + err.Error() + "\n")
	} else {
		write(prefix + "\n")
	}
}

// DropMessage logs a prefix/message pair for non-error diagnostics:
// connection state transitions, released slots, rejected protocol
// versions.
//
//go:nosplit
//go:inline
func DropMessage(prefix, message string) {
	write(prefix + ": " + message + "\n")
}

//go:nosplit
//go:inline
func write(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}
