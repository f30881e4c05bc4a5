package intake

import (
	"sync"
	"time"
)

// DefaultRevealDelay is the pause between match detection and showing the
// match summary, there to avoid an abrupt flash right after the reply lands.
const DefaultRevealDelay = 2200 * time.Millisecond

// Task is a scheduled callback that can be cancelled before it runs.
type Task interface {
	// Cancel stops the task. It reports whether the callback was prevented
	// from running.
	Cancel() bool
}

// Scheduler schedules a callback to run once after a delay.
type Scheduler interface {
	After(d time.Duration, fn func()) Task
}

// TimerScheduler is the real Scheduler, backed by time.AfterFunc.
type TimerScheduler struct{}

type timerTask struct {
	t *time.Timer
}

func (t timerTask) Cancel() bool {
	return t.t.Stop()
}

func (TimerScheduler) After(d time.Duration, fn func()) Task {
	return timerTask{t: time.AfterFunc(d, fn)}
}

// RevealPhase is the reveal timer's state.
type RevealPhase int

const (
	// RevealIdle means no match has been detected.
	RevealIdle RevealPhase = iota

	// RevealWaiting means a match was detected and the delay is running.
	RevealWaiting

	// RevealRevealed means the match summary may be shown.
	RevealRevealed
)

// RevealTimer decouples match detection from match display: on Start it
// waits a fixed delay, then flips to RevealRevealed and runs the callback.
// It is not restartable mid-flight; only Reset returns it to idle.
type RevealTimer struct {
	sched    Scheduler
	delay    time.Duration
	onReveal func()

	mu    sync.Mutex
	phase RevealPhase
	task  Task
	gen   int
}

// NewRevealTimer creates a timer with the given scheduler and delay.
// A non-positive delay falls back to DefaultRevealDelay. onReveal may be nil.
func NewRevealTimer(sched Scheduler, delay time.Duration, onReveal func()) *RevealTimer {
	if delay <= 0 {
		delay = DefaultRevealDelay
	}
	return &RevealTimer{
		sched:    sched,
		delay:    delay,
		onReveal: onReveal,
	}
}

// Start begins the reveal delay. It is a no-op unless the timer is idle.
func (t *RevealTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != RevealIdle {
		return
	}
	t.phase = RevealWaiting

	gen := t.gen
	t.task = t.sched.After(t.delay, func() {
		t.fire(gen)
	})
}

// fire flips the timer to revealed, unless a cancel or reset got there first.
// The generation check keeps a stale callback from touching state that has
// since been reset.
func (t *RevealTimer) fire(gen int) {
	t.mu.Lock()
	if t.gen != gen || t.phase != RevealWaiting {
		t.mu.Unlock()
		return
	}
	t.phase = RevealRevealed
	t.task = nil
	onReveal := t.onReveal
	t.mu.Unlock()

	if onReveal != nil {
		onReveal()
	}
}

// Cancel stops a pending reveal on teardown. The callback will not run and
// no further state change happens; the phase stays where it was.
func (t *RevealTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.task != nil {
		t.task.Cancel()
		t.task = nil
	}
}

// Reset returns the timer to idle, cancelling any pending reveal. Only the
// restart flow calls this.
func (t *RevealTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.task != nil {
		t.task.Cancel()
		t.task = nil
	}
	t.phase = RevealIdle
}

// Phase returns the current reveal phase.
func (t *RevealTimer) Phase() RevealPhase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}
