package model

import "fmt"

// Window is a bounded date sub-range queried in a single request.
type Window struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func (w Window) Days() int {
	return w.Start.DaysUntil(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Start, w.End)
}

// WindowState is the lifecycle state of a window within one range run.
type WindowState string

const (
	WindowPending   WindowState = "pending"
	WindowSucceeded WindowState = "succeeded"
	WindowExhausted WindowState = "exhausted"
)

// AttemptRecord tracks fetch attempts for one window.
// Attempts only grows on failure; once the record is terminal it never changes.
type AttemptRecord struct {
	Window   Window      `json:"window"`
	Attempts int         `json:"attempts"`
	State    WindowState `json:"state"`
	LastErr  string      `json:"last_error,omitempty"`
	Points   int         `json:"points"`
}

func NewAttemptRecord(w Window) *AttemptRecord {
	return &AttemptRecord{Window: w, State: WindowPending}
}

// Done reports whether the window reached a terminal state.
func (r *AttemptRecord) Done() bool {
	return r.State != WindowPending
}

// Succeed marks the window as fetched with n price points.
func (r *AttemptRecord) Succeed(n int) {
	if r.Done() {
		return
	}
	r.State = WindowSucceeded
	r.Points = n
	r.LastErr = ""
}

// Fail records a failed attempt and moves the window to exhausted once
// maxAttempts is reached.
func (r *AttemptRecord) Fail(err error, maxAttempts int) {
	if r.Done() {
		return
	}
	r.Attempts++
	if err != nil {
		r.LastErr = err.Error()
	}
	if r.Attempts >= maxAttempts {
		r.State = WindowExhausted
	}
}
