package controller_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"immich-wallpaper/internal/app/controller"
)

// fakeClock only moves when told to. Timers fire synchronously from Add.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	done    bool
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) controller.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done, t.stopped = true, true
	return true
}

// Add moves the clock forward by d, firing due timers in deadline order.
func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	end := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.when.After(end) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.when.After(c.now) {
			c.now = next.when
		}
		next.done = true
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = end
	c.mu.Unlock()
}

// Pending returns the deadlines of the timers that have not fired or been
// stopped.
func (c *fakeClock) Pending() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	var pending []time.Time
	for _, t := range c.timers {
		if !t.done {
			pending = append(pending, t.when)
		}
	}
	slices.SortFunc(pending, func(a, b time.Time) int { return a.Compare(b) })
	return pending
}

// recordingApplier records every applied path.
type recordingApplier struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (a *recordingApplier) Apply(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.paths = append(a.paths, path)
	return nil
}

func (a *recordingApplier) Paths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.paths)
}

func (a *recordingApplier) Last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.paths) == 0 {
		return ""
	}
	return a.paths[len(a.paths)-1]
}

// memStore is an in-memory StateStore that records every save.
type memStore struct {
	mu    sync.Mutex
	index int
	saves []int
}

func (m *memStore) Load() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *memStore) Save(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = i
	m.saves = append(m.saves, i)
}

func (m *memStore) Saves() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.saves)
}

// eventLog is an Observer collecting events.
type eventLog struct {
	mu     sync.Mutex
	events []controller.Event
}

func (l *eventLog) Notify(e controller.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) Events() []controller.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

// has reports whether an event matching f was received.
func (l *eventLog) has(f func(controller.Event) bool) bool {
	return slices.ContainsFunc(l.Events(), f)
}
