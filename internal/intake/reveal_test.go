package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevealAfterDelay(t *testing.T) {
	sched := &manualScheduler{}
	revealed := false
	timer := NewRevealTimer(sched, time.Second, func() { revealed = true })

	assert.Equal(t, RevealIdle, timer.Phase())

	timer.Start()
	assert.Equal(t, RevealWaiting, timer.Phase())
	assert.False(t, revealed, "nothing shown before the delay elapses")

	sched.fireAll()
	assert.Equal(t, RevealRevealed, timer.Phase())
	assert.True(t, revealed)
}

func TestCancelPreventsReveal(t *testing.T) {
	sched := &manualScheduler{}
	revealed := false
	timer := NewRevealTimer(sched, time.Second, func() { revealed = true })

	timer.Start()
	timer.Cancel()

	sched.fireAll()
	assert.False(t, revealed, "no state update after teardown")
	assert.Equal(t, RevealWaiting, timer.Phase())
}

func TestStaleCallbackIgnoredAfterReset(t *testing.T) {
	sched := &manualScheduler{}
	revealed := 0
	timer := NewRevealTimer(sched, time.Second, func() { revealed++ })

	timer.Start()
	first := sched.tasks // the pending callback from the first match
	timer.Reset()
	timer.Start()

	// The old callback firing late must not flip the new cycle.
	for _, task := range first {
		task.fn()
	}
	assert.Equal(t, RevealWaiting, timer.Phase())
	assert.Equal(t, 0, revealed)

	sched.fireAll()
	assert.Equal(t, RevealRevealed, timer.Phase())
	assert.Equal(t, 1, revealed)
}

func TestNotRestartableMidFlight(t *testing.T) {
	sched := &manualScheduler{}
	timer := NewRevealTimer(sched, time.Second, nil)

	timer.Start()
	timer.Start() // ignored
	require.Len(t, sched.tasks, 1, "a second start must not schedule again")

	sched.fireAll()
	timer.Start() // ignored after reveal as well
	assert.Equal(t, RevealRevealed, timer.Phase())
	assert.Empty(t, sched.tasks)
}

func TestDefaultDelayFallback(t *testing.T) {
	timer := NewRevealTimer(TimerScheduler{}, 0, nil)
	assert.Equal(t, DefaultRevealDelay, timer.delay)
}

func TestConsentGate(t *testing.T) {
	var gate ConsentGate
	assert.False(t, gate.HasConsented())
	gate.GrantConsent()
	assert.True(t, gate.HasConsented())
	gate.GrantConsent()
	assert.True(t, gate.HasConsented())
}
