package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller() *Poller {
	return New(Options{MinInterval: time.Millisecond})
}

func TestPoller_RunsImmediatelyAndRepeats(t *testing.T) {
	p := newTestPoller()
	var calls atomic.Int32

	require.True(t, p.Start(context.Background(), "dataset", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	defer p.StopAll()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running("dataset"))
}

func TestPoller_StartIsIdempotent(t *testing.T) {
	p := newTestPoller()
	var first, second atomic.Int32

	require.True(t, p.Start(context.Background(), "s", 20*time.Millisecond, func(context.Context) error {
		first.Add(1)
		return nil
	}))
	assert.False(t, p.Start(context.Background(), "s", time.Millisecond, func(context.Context) error {
		second.Add(1)
		return nil
	}))

	time.Sleep(50 * time.Millisecond)
	p.Stop("s")

	assert.Zero(t, second.Load(), "second start must not add a timer")
	assert.Positive(t, first.Load())
}

func TestPoller_StopHaltsPolling(t *testing.T) {
	p := newTestPoller()
	var calls atomic.Int32
	require.True(t, p.Start(context.Background(), "s", 5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	p.Stop("s")
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, after, calls.Load())
	assert.False(t, p.Running("s"))

	// Restart after stop is allowed.
	assert.True(t, p.Start(context.Background(), "s", 5*time.Millisecond, func(context.Context) error { return nil }))
	p.StopAll()
}

func TestPoller_ErrorsDoNotStopSubscriber(t *testing.T) {
	p := newTestPoller()
	var calls atomic.Int32
	require.True(t, p.Start(context.Background(), "flaky", 5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	}))
	defer p.StopAll()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestPoller_ClampsInterval(t *testing.T) {
	p := New(Options{})
	assert.Equal(t, MinInterval, p.min)

	var calls atomic.Int32
	require.True(t, p.Start(context.Background(), "slow", time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	time.Sleep(50 * time.Millisecond)
	p.StopAll()
	assert.Equal(t, int32(1), calls.Load(), "only the immediate run happens within the minimum interval")
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	p := newTestPoller()
	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, p.Start(ctx, "a", 5*time.Millisecond, func(context.Context) error { return nil }))
	require.True(t, p.Start(ctx, "b", 5*time.Millisecond, func(context.Context) error { return nil }))

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, p.Running("a"))
	assert.False(t, p.Running("b"))
}

func TestPoller_ObserverSeesOutcome(t *testing.T) {
	var failures atomic.Int32
	p := New(Options{
		MinInterval: time.Millisecond,
		Observer: func(name string, err error, _ time.Duration) {
			if name == "flaky" && err != nil {
				failures.Add(1)
			}
		},
	})

	require.True(t, p.Start(context.Background(), "flaky", time.Millisecond, func(context.Context) error {
		return errors.New("backend down")
	}))
	defer p.StopAll()

	assert.Eventually(t, func() bool { return failures.Load() >= 2 }, time.Second, time.Millisecond)
}
