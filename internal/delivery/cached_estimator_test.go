package delivery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetComputesOnce(t *testing.T) {
	var calls atomic.Int32
	c := NewCachedEstimator(func(_ context.Context, subjectID, stageID int64) (Estimate, error) {
		calls.Add(1)
		return Estimate{BusinessDays: int(subjectID + stageID)}, nil
	})

	est, err := c.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, est.BusinessDays)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 1, c.Len())
}

// Ten concurrent callers for the same key must observe exactly one
// computation and identical results.
func TestConcurrentCallersCoalesce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	c := NewCachedEstimator(func(context.Context, int64, int64) (Estimate, error) {
		calls.Add(1)
		<-release
		return Estimate{BusinessDays: 5}, nil
	})

	var started sync.WaitGroup
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		started.Add(1)
		g.Go(func() error {
			started.Done()
			est, err := c.Get(context.Background(), 1, 2)
			if err != nil {
				return err
			}
			if est.BusinessDays != 5 {
				return errors.New("unexpected estimate")
			}
			return nil
		})
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond) // let every caller reach the group
	close(release)

	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), calls.Load())
}

func TestCompletedEntryIsWriteOnce(t *testing.T) {
	var calls atomic.Int32
	c := NewCachedEstimator(func(context.Context, int64, int64) (Estimate, error) {
		calls.Add(1)
		return Estimate{BusinessDays: int(calls.Load())}, nil
	})

	first, err := c.Get(context.Background(), 1, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := c.Get(context.Background(), 1, 2)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestDistinctKeysComputeIndependently(t *testing.T) {
	var calls atomic.Int32
	c := NewCachedEstimator(func(_ context.Context, subjectID, stageID int64) (Estimate, error) {
		calls.Add(1)
		return Estimate{BusinessDays: int(subjectID*100 + stageID)}, nil
	})

	a, err := c.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	b, err := c.Get(context.Background(), 2, 1)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 2, c.Len())
}

// A failed computation propagates the same error to every waiting caller and
// leaves no entry behind, so the next call retries.
func TestFailureFansOutAndAllowsRetry(t *testing.T) {
	computeErr := errors.New("scheduling service timeout")
	var calls atomic.Int32
	release := make(chan struct{})

	c := NewCachedEstimator(func(context.Context, int64, int64) (Estimate, error) {
		if calls.Add(1) == 1 {
			<-release
			return Estimate{}, computeErr
		}
		return Estimate{BusinessDays: 7}, nil
	})

	var started sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		started.Add(1)
		go func() {
			started.Done()
			_, err := c.Get(context.Background(), 1, 2)
			errs <- err
		}()
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 10; i++ {
		require.ErrorIs(t, <-errs, computeErr)
	}
	require.Zero(t, c.Len())

	est, err := c.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, 7, est.BusinessDays)
	require.Equal(t, int32(2), calls.Load())
}

// An abandoning caller gets its context error; the shared computation keeps
// running and still serves the remaining callers.
func TestCancellationIsCallerLocal(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	c := NewCachedEstimator(func(ctx context.Context, _, _ int64) (Estimate, error) {
		calls.Add(1)
		select {
		case <-release:
			return Estimate{BusinessDays: 9}, nil
		case <-ctx.Done():
			return Estimate{}, ctx.Err()
		}
	})

	ctx1, cancel1 := context.WithCancel(context.Background())

	got1 := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx1, 1, 2)
		got1 <- err
	}()

	got2 := make(chan Estimate, 1)
	got2Err := make(chan error, 1)
	go func() {
		est, err := c.Get(context.Background(), 1, 2)
		got2 <- est
		got2Err <- err
	}()

	time.Sleep(50 * time.Millisecond) // both callers join the flight
	cancel1()

	require.ErrorIs(t, <-got1, context.Canceled)

	close(release)
	require.NoError(t, <-got2Err)
	require.Equal(t, 9, (<-got2).BusinessDays)
	require.Equal(t, int32(1), calls.Load())
}
