package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_AllWorkersStart(t *testing.T) {
	s := NewSupervisor()

	var started [3]atomic.Bool

	for i := 0; i < 3; i++ {
		idx := i
		s.Add("worker-"+string(rune('0'+i)), func(ctx context.Context) error {
			started[idx].Store(true)
			<-ctx.Done()
			return nil
		}, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := s.Start(ctx)
	require.NoError(t, err)

	// Give workers time to start
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, started[i].Load(), "worker %d should have started", i)
	}

	cancel()
	_ = s.Wait(ctx)
}

func TestSupervisor_ShutdownReverseOrder(t *testing.T) {
	s := NewSupervisor()

	var shutdownOrder []int
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		idx := i
		s.Add("worker-"+string(rune('0'+i)), func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}, func() error {
			mu.Lock()
			shutdownOrder = append(shutdownOrder, idx)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := s.Start(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	cancel()
	_ = s.Wait(ctx)

	// Workers should be closed in reverse order: 2, 1, 0
	assert.Equal(t, []int{2, 1, 0}, shutdownOrder)
}

func TestSupervisor_ErrorPropagation(t *testing.T) {
	s := NewSupervisor()
	expectedErr := errors.New("worker failed")

	s.Add("failing", func(ctx context.Context) error {
		return expectedErr
	}, nil)
	s.Add("healthy", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	time.Sleep(50 * time.Millisecond)
	cancel()

	err := s.Wait(ctx)
	assert.ErrorIs(t, err, expectedErr)
}

func TestSupervisor_FirstErrorWins(t *testing.T) {
	s := NewSupervisor()
	firstErr := errors.New("first")
	secondErr := errors.New("second")

	s.Add("first", func(ctx context.Context) error {
		return firstErr
	}, nil)
	s.Add("second", func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return secondErr
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	time.Sleep(200 * time.Millisecond)
	cancel()

	err := s.Wait(ctx)
	assert.ErrorIs(t, err, firstErr)
}

func TestSupervisor_WorkerErrorTriggersShutdown(t *testing.T) {
	s := NewSupervisor()
	expectedErr := errors.New("listen failed")

	closed := make(chan struct{})
	s.Add("healthy", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, func() error {
		close(closed)
		return nil
	})
	s.Add("failing", func(ctx context.Context) error {
		return expectedErr
	}, nil)

	// No manual cancel: the failing worker alone must bring the
	// supervisor down.
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	done := make(chan error, 1)
	go func() {
		done <- s.Wait(ctx)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, expectedErr)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for supervisor shutdown")
	}

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for healthy worker to be closed")
	}
}

func TestSupervisor_CloseErrorDoesNotMaskResult(t *testing.T) {
	s := NewSupervisor()

	s.Add("worker", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, func() error {
		return errors.New("close failed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	time.Sleep(50 * time.Millisecond)
	cancel()

	// Close failures are logged, not returned.
	assert.NoError(t, s.Wait(ctx))
}
