package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gtuazon18/rxn3d-core/internal/build"
	"github.com/gtuazon18/rxn3d-core/pkg/logger"
)

var tracer = otel.Tracer("rxn3d-core/internal/delivery")

var (
	estimateTotalCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "delivery_estimate_total_count",
		Help:      "The total number of delivery estimate requests.",
	})

	estimateHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "delivery_estimate_hit_count",
		Help:      "The total number of delivery estimate requests served from completed entries.",
	})

	deduplicatedComputeCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "deduplicated_estimate_compute_count",
		Help:      "The total number of estimate computations prevented by joining an in-flight one.",
	})
)

type entry struct {
	estimate   Estimate
	computedAt time.Time
}

// CachedEstimator wraps an EstimateFunc with a write-once memo table and an
// in-flight group. Completed entries are valid for the process lifetime;
// callers needing freshness use a new (subject, stage) key. Entries are never
// mutated after insertion.
type CachedEstimator struct {
	compute EstimateFunc
	logger  logger.Logger

	// mu serializes access to entries so two callers cannot both observe
	// "no entry, no in-flight" and start duplicate computations.
	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

var _ Estimator = (*CachedEstimator)(nil)

// CachedEstimatorOpt configures a CachedEstimator.
type CachedEstimatorOpt func(*CachedEstimator)

// WithLogger sets the logger for the estimator.
func WithLogger(l logger.Logger) CachedEstimatorOpt {
	return func(c *CachedEstimator) {
		c.logger = l
	}
}

// NewCachedEstimator builds a CachedEstimator over the injected computation.
func NewCachedEstimator(compute EstimateFunc, opts ...CachedEstimatorOpt) *CachedEstimator {
	c := &CachedEstimator{
		compute: compute,
		logger:  logger.NewNoopLogger(),
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the estimate for the (subject, stage) pair. A completed entry
// is returned immediately; otherwise the caller joins the in-flight
// computation for the key, or starts one if none exists. A failed computation
// propagates its error to every joined caller and leaves no entry behind, so
// the next call retries.
//
// Abandoning the wait is caller-local: the shared computation keeps running
// for the other callers, detached from the abandoning caller's cancellation.
func (c *CachedEstimator) Get(ctx context.Context, subjectID, stageID int64) (Estimate, error) {
	ctx, span := tracer.Start(ctx, "delivery.Get")
	defer span.End()

	estimateTotalCounter.Inc()
	key := estimateKey(subjectID, stageID)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		estimateHitCounter.Inc()
		return e.estimate, nil
	}

	isStarter := false
	ch := c.group.DoChan(key, func() (interface{}, error) {
		isStarter = true

		// A previous flight may have completed between the read above and
		// joining the group.
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e.estimate, nil
		}

		est, err := c.compute(context.WithoutCancel(ctx), subjectID, stageID)
		if err != nil {
			c.logger.WarnWithContext(ctx, "delivery estimate computation failed",
				zap.Int64("subject_id", subjectID),
				zap.Int64("stage_id", stageID),
				zap.Error(err))
			return Estimate{}, err
		}

		c.mu.Lock()
		c.entries[key] = entry{estimate: est, computedAt: time.Now()}
		c.mu.Unlock()

		return est, nil
	})

	select {
	case <-ctx.Done():
		return Estimate{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Estimate{}, res.Err
		}
		if res.Shared && !isStarter {
			deduplicatedComputeCounter.Inc()
		}
		return res.Val.(Estimate), nil
	}
}

// Len reports the number of completed entries, for tests and introspection.
func (c *CachedEstimator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func estimateKey(subjectID, stageID int64) string {
	return fmt.Sprintf("%d-%d", subjectID, stageID)
}
