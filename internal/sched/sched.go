// internal/sched/sched.go

// Package sched provides cancellable scheduled tasks for the header
// controller: delayed callbacks (the hide debounce) and render-frame commits
// (the two-frame settle pulse). The Wall implementation runs on real time;
// Manual is a deterministic implementation for tests.
package sched

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled callback. Stop cancels the callback and
// reports whether it was prevented from running.
type Task interface {
	Stop() bool
}

// Scheduler schedules delayed callbacks and render-frame commits. Callbacks
// run on scheduler-owned goroutines; callers serialize their own state.
type Scheduler interface {
	// AfterFunc runs fn once after d elapses.
	AfterFunc(d time.Duration, fn func()) Task
	// NextFrame runs fn after the next render commit. A callback scheduled
	// from within a frame callback runs on the following frame, never the
	// current one.
	NextFrame(fn func()) Task
}

// Wall is the production scheduler. Frames are paced at a fixed interval,
// standing in for the platform's paint cycle.
type Wall struct {
	frame time.Duration
}

// NewWall returns a wall-clock scheduler with the given frame interval.
// Non-positive intervals fall back to 16ms (one commit at 60Hz).
func NewWall(frameInterval time.Duration) *Wall {
	if frameInterval <= 0 {
		frameInterval = 16 * time.Millisecond
	}
	return &Wall{frame: frameInterval}
}

func (w *Wall) AfterFunc(d time.Duration, fn func()) Task {
	return wallTask{t: time.AfterFunc(d, fn)}
}

func (w *Wall) NextFrame(fn func()) Task {
	return w.AfterFunc(w.frame, fn)
}

type wallTask struct {
	t *time.Timer
}

func (w wallTask) Stop() bool { return w.t.Stop() }

// Manual is a deterministic scheduler for tests. Time only moves through
// Advance, and frames only commit through Frame, so the 150ms debounce and
// the two-frame settle are testable without wall-clock sleeps.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTask
	frames []*manualTask
}

func NewManual() *Manual {
	return &Manual{}
}

type manualTask struct {
	m       *Manual
	at      time.Duration
	seq     int
	fn      func()
	fired   bool
	stopped bool
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) NextFrame(fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, seq: m.seq, fn: fn}
	m.frames = append(m.frames, t)
	return t
}

// Now reports the current simulated time offset.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves simulated time forward, firing due timers in deadline order.
// Callbacks run without the scheduler lock held and may schedule new tasks;
// tasks that become due within the advanced window fire too.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	for {
		next := m.nextDueLocked(target)
		if next == nil {
			break
		}
		if next.at > m.now {
			m.now = next.at
		}
		next.fired = true
		m.mu.Unlock()
		next.fn()
		m.mu.Lock()
	}
	m.now = target
	m.compactTimersLocked()
	m.mu.Unlock()
}

// Frame commits one render frame: every currently queued frame callback runs,
// and callbacks they queue wait for the next Frame call.
func (m *Manual) Frame() {
	m.mu.Lock()
	batch := m.frames
	m.frames = nil
	m.mu.Unlock()

	for _, t := range batch {
		m.mu.Lock()
		if t.stopped {
			m.mu.Unlock()
			continue
		}
		t.fired = true
		m.mu.Unlock()
		t.fn()
	}
}

// nextDueLocked returns the earliest pending timer due at or before target.
func (m *Manual) nextDueLocked(target time.Duration) *manualTask {
	var best *manualTask
	for _, t := range m.timers {
		if t.fired || t.stopped || t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) compactTimersLocked() {
	kept := m.timers[:0]
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			kept = append(kept, t)
		}
	}
	m.timers = kept
}

// PendingTimers reports how many timers are armed, for leak assertions in
// tests.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// NextTimerAt reports the earliest pending timer deadline, as an offset from
// the scheduler's zero time.
func (m *Manual) NextTimerAt() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best time.Duration
	found := false
	for _, t := range m.timers {
		if t.fired || t.stopped {
			continue
		}
		if !found || t.at < best {
			best = t.at
			found = true
		}
	}
	return best, found
}

// PendingFrames reports how many frame callbacks are queued for the next
// Frame call.
func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.frames {
		if !t.stopped {
			n++
		}
	}
	return n
}
