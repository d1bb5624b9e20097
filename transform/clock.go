package transform

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	clockMu sync.RWMutex
	clk     clock.Clock = clock.New()
)

// SetClock replaces the clock transforms read "now" from and returns a function restoring the
// previous one. Tests use it with clock.NewMock().
func SetClock(c clock.Clock) (restore func()) {
	clockMu.Lock()
	defer clockMu.Unlock()
	prev := clk
	clk = c
	return func() {
		clockMu.Lock()
		defer clockMu.Unlock()
		clk = prev
	}
}

// Now returns the current time of the package clock.
func Now() time.Time {
	clockMu.RLock()
	defer clockMu.RUnlock()
	return clk.Now()
}
