// Package clock abstracts the time source used by the chat session and the continuity
// resolver so tests can drive delayed replies and ticket numbers deterministically.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is the subset of the time package the client needs.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d elapses. The returned Timer cancels the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a cancellable scheduled callback.
type Timer struct {
	stop func() bool
}

// Stop prevents the callback from running. It reports false when the callback already ran
// or the timer was stopped before.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}

// Fake is a manually advanced Clock. Callbacks run synchronously inside Advance in deadline
// order, so they must not call Advance themselves.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	done     bool
}

// NewFake returns a Fake clock frozen at initial.
func NewFake(initial time.Time) *Fake {
	return &Fake{now: initial}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to run once the clock is advanced past d. A non-positive d runs fn
// before AfterFunc returns.
func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		fn()
		return &Timer{stop: func() bool { return false }}
	}

	f.mu.Lock()
	ft := &fakeTimer{deadline: f.now.Add(d), fn: fn}
	f.pending = append(f.pending, ft)
	f.mu.Unlock()

	return &Timer{stop: func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if ft.done {
			return false
		}
		ft.done = true
		return true
	}}
}

// Advance moves the clock forward and fires every callback that came due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []*fakeTimer
	remaining := f.pending[:0]
	for _, ft := range f.pending {
		switch {
		case ft.done:
		case !ft.deadline.After(now):
			ft.done = true
			due = append(due, ft)
		default:
			remaining = append(remaining, ft)
		}
	}
	f.pending = remaining
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, ft := range due {
		ft.fn()
	}
}

// Pending reports how many callbacks are still scheduled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ft := range f.pending {
		if !ft.done {
			n++
		}
	}
	return n
}
