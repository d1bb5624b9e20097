package transform

import (
	"fmt"
	"math"
	"time"
)

// Forever is the validity duration of a transform that never expires.
const Forever time.Duration = math.MaxInt64

var (
	// BeginningOfTime is the earliest start any window can have.
	BeginningOfTime = time.Unix(0, 0).UTC()
	// EndOfTime is the expiration of a window that never expires.
	EndOfTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Window is the closed time interval [Start, Expiration] during which a transform is valid.
// A window whose expiration is before its start is empty and contains no instant.
type Window struct {
	Start      time.Time `json:"start"`
	Expiration time.Time `json:"expiration"`
}

// NewWindow returns the window starting at start and lasting validFor. Durations that would run past
// EndOfTime, and Forever, saturate at EndOfTime. Negative durations are treated as zero.
func NewWindow(start time.Time, validFor time.Duration) Window {
	if validFor < 0 {
		validFor = 0
	}
	if validFor == Forever || EndOfTime.Sub(start) <= validFor {
		return Window{Start: start, Expiration: EndOfTime}
	}
	return Window{Start: start, Expiration: start.Add(validFor)}
}

// AlwaysValid returns the window spanning all of time.
func AlwaysValid() Window {
	return Window{Start: BeginningOfTime, Expiration: EndOfTime}
}

// Contains returns whether t lies within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.Expiration)
}

// IsEmpty returns whether no instant lies within the window.
func (w Window) IsEmpty() bool {
	return w.Expiration.Before(w.Start)
}

// Intersect returns the overlap of the two windows. The result is empty when they do not overlap.
func (w Window) Intersect(other Window) Window {
	out := w
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.Expiration.Before(out.Expiration) {
		out.Expiration = other.Expiration
	}
	return out
}

func (w Window) String() string {
	if w.IsEmpty() {
		return "[empty]"
	}
	exp := w.Expiration.Format(time.RFC3339Nano)
	if w.Expiration.Equal(EndOfTime) {
		exp = "forever"
	}
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339Nano), exp)
}
