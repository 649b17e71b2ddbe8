package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// step is one recorded call and the expected breaker position afterwards.
type step struct {
	success bool
	open    bool
	opened  bool
	closed  bool
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{open: false},
				{open: false},
				{open: true, opened: true},
				{open: true},
			},
		},
		{
			name: "a success breaks the failure run",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{},
				{success: true},
				{},
				{open: true, opened: true},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{open: true, opened: true},
				{success: true, open: true},
				{success: true, closed: true},
			},
		},
		{
			name: "a failure while open restarts the success run",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{open: true, opened: true},
				{success: true, open: true},
				{open: true},
				{success: true, open: true},
				{success: true, closed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("companiesHouse", tt.opts...)
			for i, s := range tt.steps {
				var change StateChange
				if s.success {
					_, change = b.RecordSuccess()
				} else {
					_, change = b.RecordFailure()
				}
				assert.Equal(t, s.open, b.IsOpen(), "step %d", i)
				assert.Equal(t, s.opened, change.Opened, "step %d opened", i)
				assert.Equal(t, s.closed, change.Closed, "step %d closed", i)
			}
		})
	}
}

func TestBreakerFallbackSignals(t *testing.T) {
	b := New("fca", WithFailureThreshold(1), WithSuccessThreshold(1))
	assert.Equal(t, "fca", b.Name())
	assert.Equal(t, StateClosed, b.State())

	useFallback, _ := b.RecordFailure()
	assert.True(t, useFallback, "open circuit routes callers to the fallback")

	usePrimary, _ := b.RecordSuccess()
	assert.True(t, usePrimary, "success threshold of one closes straight away")
}

func TestBreakerReset(t *testing.T) {
	b := New("dnb", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "closed", b.State().String())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("companiesHouse",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow(), "open circuit rejects inside cooldown")

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "one probe after cooldown")
	assert.False(t, b.Allow(), "second probe waits for the next window")

	_, change := b.RecordSuccess()
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}

func TestBreakerWithoutCooldownNeverProbes(t *testing.T) {
	b := New("lexisNexis", WithFailureThreshold(1))
	b.RecordFailure()
	assert.False(t, b.Allow())
	assert.Equal(t, "open", b.State().String())
}

func TestBreakerConcurrentRecords(t *testing.T) {
	b := New("lexisNexis", WithFailureThreshold(50))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
}
