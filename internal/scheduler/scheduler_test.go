package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Shutdown(time.Second) })
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRegistry(t)

	assert.Error(t, r.Register(Worker{ID: "", Run: func(context.Context) error { return nil }}))
	assert.Error(t, r.Register(Worker{ID: "no-run"}))

	require.NoError(t, r.Register(Worker{
		ID:       "a",
		Interval: time.Minute,
		Run:      func(context.Context) error { return nil },
	}))
	assert.Error(t, r.Register(Worker{
		ID:       "a",
		Interval: time.Minute,
		Run:      func(context.Context) error { return nil },
	}))
}

func TestIntervalClampedToMinimum(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Worker{
		ID:       "fast",
		Interval: 50 * time.Millisecond,
		Run:      func(context.Context) error { return nil },
	}))

	info, err := r.Get("fast")
	require.NoError(t, err)
	assert.Equal(t, MinInterval.Milliseconds(), info.IntervalMs)

	require.NoError(t, r.SetInterval("fast", 10*time.Millisecond))
	info, err = r.Get("fast")
	require.NoError(t, err)
	assert.Equal(t, MinInterval.Milliseconds(), info.IntervalMs)
}

func TestRunNowExecutesOnce(t *testing.T) {
	r := newTestRegistry(t)
	var runs atomic.Int32
	require.NoError(t, r.Register(Worker{
		ID:             "job",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, r.RunNow("job"))
	waitFor(t, func() bool { return runs.Load() == 1 })

	info, err := r.Get("job")
	require.NoError(t, err)
	assert.NotNil(t, info.LastRun)
	assert.Empty(t, info.LastError)
}

func TestRunNowRefusedWhileExecuting(t *testing.T) {
	r := newTestRegistry(t)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, r.Register(Worker{
		ID:             "slow",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))

	require.NoError(t, r.RunNow("slow"))
	<-started

	err := r.RunNow("slow")
	assert.Error(t, err)
	close(release)
}

func TestErrorMarksWorkerAndScheduleContinues(t *testing.T) {
	r := newTestRegistry(t)
	var runs atomic.Int32
	require.NoError(t, r.Register(Worker{
		ID:             "flaky",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run: func(context.Context) error {
			if runs.Add(1) == 1 {
				return errors.New("boom")
			}
			return nil
		},
	}))

	require.NoError(t, r.RunNow("flaky"))
	waitFor(t, func() bool { return runs.Load() == 1 })
	waitFor(t, func() bool {
		info, err := r.Get("flaky")
		return err == nil && info.Status == StatusError
	})
	info, _ := r.Get("flaky")
	assert.Equal(t, "boom", info.LastError)

	// A later successful run clears the error.
	require.NoError(t, r.RunNow("flaky"))
	waitFor(t, func() bool { return runs.Load() == 2 })
	waitFor(t, func() bool {
		info, err := r.Get("flaky")
		return err == nil && info.LastError == ""
	})
}

func TestStartStopLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Worker{
		ID:             "w",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run:            func(context.Context) error { return nil },
	}))

	info, err := r.Get("w")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, info.Status)

	require.NoError(t, r.Start("w"))
	info, err = r.Get("w")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, info.Status)

	require.NoError(t, r.Stop("w"))
	info, err = r.Get("w")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, info.Status)

	require.NoError(t, r.Restart("w"))
	info, err = r.Get("w")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, info.Status)
}

func TestStartInitialRunOverride(t *testing.T) {
	r := newTestRegistry(t)
	var runs atomic.Int32
	require.NoError(t, r.Register(Worker{
		ID:             "w",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))
	require.NoError(t, r.StartAll())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load(), "worker default suppresses the initial run")

	// A per-start override forces the immediate run the worker opted out of.
	require.NoError(t, r.Stop("w"))
	require.NoError(t, r.Start("w", false))
	waitFor(t, func() bool { return runs.Load() == 1 })

	// Restart never runs immediately, whatever the worker's default.
	require.NoError(t, r.Restart("w"))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)
	for _, id := range []string{"one", "two", "three"} {
		require.NoError(t, r.Register(Worker{
			ID:       id,
			Interval: time.Hour,
			Run:      func(context.Context) error { return nil },
		}))
	}

	infos := r.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "one", infos[0].ID)
	assert.Equal(t, "two", infos[1].ID)
	assert.Equal(t, "three", infos[2].ID)
}

func TestShutdownWaitsForInflightRun(t *testing.T) {
	r := newTestRegistry(t)
	finished := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, r.Register(Worker{
		ID:             "w",
		Interval:       time.Hour,
		SkipInitialRun: true,
		Run: func(ctx context.Context) error {
			close(started)
			select {
			case <-ctx.Done():
			case <-time.After(100 * time.Millisecond):
			}
			close(finished)
			return nil
		},
	}))

	require.NoError(t, r.RunNow("w"))
	<-started
	require.NoError(t, r.Shutdown(2*time.Second))

	select {
	case <-finished:
	default:
		t.Fatal("shutdown returned before the in-flight run finished")
	}
}
