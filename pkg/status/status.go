// Package status carries user-facing state messages from the workers to the
// status bar. Failures surface here instead of dialogs so the reader loop
// never blocks.
package status

// Severity selects the display color of a status message.
type Severity int

const (
	Info Severity = iota
	Success
	Busy
	Warn
	Error
)

// Func receives a status message. Implementations must be safe to call from
// any goroutine.
type Func func(msg string, sev Severity)

// Notify is a nil-safe call helper.
func (f Func) Notify(msg string, sev Severity) {
	if f != nil {
		f(msg, sev)
	}
}
