// Package engine composes the resolution core behind the contracts the
// surrounding product consumes: catalog loading with snapshot reuse,
// attribute writes with arch propagation, configuration reads, delivery
// estimates, and change notifications.
package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gtuazon18/rxn3d-core/internal/concurrency"
	"github.com/gtuazon18/rxn3d-core/internal/configuration"
	"github.com/gtuazon18/rxn3d-core/internal/delivery"
	"github.com/gtuazon18/rxn3d-core/internal/resolution"
	"github.com/gtuazon18/rxn3d-core/pkg/cache"
	"github.com/gtuazon18/rxn3d-core/pkg/caller"
	"github.com/gtuazon18/rxn3d-core/pkg/catalog"
	"github.com/gtuazon18/rxn3d-core/pkg/logger"
	"github.com/gtuazon18/rxn3d-core/pkg/shade"
	"github.com/gtuazon18/rxn3d-core/pkg/storage"
	"github.com/gtuazon18/rxn3d-core/pkg/storage/memory"
)

const (
	defaultSnapshotTTL    = 30 * time.Second
	subscriberChannelSize = 16
)

// ChangeEvent is published after every completed mutation, including the
// propagated secondary-side state.
type ChangeEvent struct {
	SubjectID     int64
	Side          shade.Side
	Kind          shade.Kind
	Pair          storage.RecordPair
	CorrelationID string
}

// Engine is the facade the surrounding workflow talks to.
type Engine struct {
	source    catalog.DataSource
	snapshots *cache.InMemoryCache[*catalog.Index]
	ttl       time.Duration
	resolver  *resolution.Resolver
	store     *configuration.Store
	backend   storage.ConfigBackend
	estimator delivery.Estimator
	logger    logger.Logger

	fpMu         sync.Mutex
	fingerprints map[int64]uint64

	subMu       sync.Mutex
	subscribers []chan ChangeEvent
}

// Opt configures an Engine.
type Opt func(*Engine)

// WithLogger sets the logger used by the engine and its components.
func WithLogger(l logger.Logger) Opt {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSnapshotTTL controls how long a loaded catalog snapshot is reused
// before the next operation refreshes it from the source.
func WithSnapshotTTL(ttl time.Duration) Opt {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithBackend overrides the default in-memory configuration backend.
func WithBackend(b storage.ConfigBackend) Opt {
	return func(e *Engine) {
		e.backend = b
	}
}

// New builds an Engine over a catalog source and the injected delivery
// computation.
func New(source catalog.DataSource, compute delivery.EstimateFunc, opts ...Opt) (*Engine, error) {
	e := &Engine{
		source:       source,
		ttl:          defaultSnapshotTTL,
		logger:       logger.NewNoopLogger(),
		fingerprints: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}

	snapshots, err := cache.NewInMemoryCache[*catalog.Index]()
	if err != nil {
		return nil, err
	}
	e.snapshots = snapshots

	if e.backend == nil {
		e.backend = memory.New()
	}
	e.resolver = resolution.NewResolver(resolution.WithLogger(e.logger))
	e.store = configuration.NewStore(e.backend, e.resolver, configuration.WithLogger(e.logger))
	e.estimator = delivery.NewCachedEstimator(compute, delivery.WithLogger(e.logger))

	return e, nil
}

// AddSubject registers a case product and creates its two empty records.
func (e *Engine) AddSubject(ctx context.Context, subjectID int64, dualSided bool) error {
	return e.store.Register(ctx, storage.Subject{ID: subjectID, DualSided: dualSided})
}

// RemoveSubject drops the subject, both records, and its cached snapshot.
func (e *Engine) RemoveSubject(ctx context.Context, subjectID int64) error {
	e.snapshots.Delete(snapshotKey(subjectID))
	return e.store.Remove(ctx, subjectID)
}

// SetAttribute resolves the selection and writes it, then notifies
// subscribers with the post-propagation record pair.
func (e *Engine) SetAttribute(
	ctx context.Context,
	cc caller.Context,
	subjectID int64,
	side shade.Side,
	kind shade.Kind,
	selection string,
) (storage.RecordPair, error) {
	cc = cc.WithCorrelation()
	idx := e.snapshot(ctx, subjectID)

	pair, err := e.store.SetAttribute(ctx, cc, idx, subjectID, side, kind, selection)
	if err != nil {
		return storage.RecordPair{}, err
	}

	e.publish(ChangeEvent{
		SubjectID:     subjectID,
		Side:          side,
		Kind:          kind,
		Pair:          pair,
		CorrelationID: cc.CorrelationID,
	})
	return pair, nil
}

// GetAttribute reads one attribute slot.
func (e *Engine) GetAttribute(ctx context.Context, subjectID int64, side shade.Side, kind shade.Kind) (shade.ResolvedAttribute, error) {
	return e.store.GetAttribute(ctx, subjectID, side, kind)
}

// Clear empties the kind and notifies subscribers.
func (e *Engine) Clear(
	ctx context.Context,
	cc caller.Context,
	subjectID int64,
	side shade.Side,
	kind shade.Kind,
) (storage.RecordPair, error) {
	cc = cc.WithCorrelation()

	pair, err := e.store.Clear(ctx, cc, subjectID, side, kind)
	if err != nil {
		return storage.RecordPair{}, err
	}

	e.publish(ChangeEvent{
		SubjectID:     subjectID,
		Side:          side,
		Kind:          kind,
		Pair:          pair,
		CorrelationID: cc.CorrelationID,
	})
	return pair, nil
}

// RecordPair returns both sides of the subject's configuration.
func (e *Engine) RecordPair(ctx context.Context, subjectID int64) (storage.RecordPair, error) {
	return e.store.RecordPair(ctx, subjectID)
}

// DeliveryEstimate returns the memoized estimate for the subject and stage.
func (e *Engine) DeliveryEstimate(ctx context.Context, subjectID, stageID int64) (delivery.Estimate, error) {
	return e.estimator.Get(ctx, subjectID, stageID)
}

// RefreshCatalog drops the cached snapshot and loads a fresh one.
func (e *Engine) RefreshCatalog(ctx context.Context, subjectID int64) (*catalog.Index, error) {
	e.snapshots.Delete(snapshotKey(subjectID))

	idx, err := catalog.Load(ctx, e.source, subjectID)
	if err != nil {
		return nil, err
	}
	e.observeFingerprint(ctx, idx)
	e.snapshots.Set(snapshotKey(subjectID), idx, e.ttl)
	return idx, nil
}

// WarmCatalogs loads snapshots for a batch of subjects ahead of use, with at
// most maxConcurrency loads in flight. The first load failure cancels the
// remaining ones and is returned.
func (e *Engine) WarmCatalogs(ctx context.Context, subjectIDs []int64, maxConcurrency int) error {
	pool := concurrency.NewPool(ctx, maxConcurrency)
	for _, subjectID := range subjectIDs {
		pool.Go(func(ctx context.Context) error {
			_, err := e.RefreshCatalog(ctx, subjectID)
			return err
		})
	}
	return pool.Wait()
}

// Subscribe registers a change listener. Events are delivered best-effort: a
// subscriber that stops draining loses events rather than blocking writers.
// The returned cancel function closes the channel.
func (e *Engine) Subscribe() (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, subscriberChannelSize)

	e.subMu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		for i, sub := range e.subscribers {
			if sub == ch {
				e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Close releases the snapshot cache and the backend.
func (e *Engine) Close() {
	e.snapshots.Stop()
	e.backend.Close()
}

// snapshot returns the subject's catalog index, loading and caching it when
// absent. Source failures degrade to an empty index so resolution still
// produces raw-text fallbacks; the failure is not cached, so the next
// operation retries the source.
func (e *Engine) snapshot(ctx context.Context, subjectID int64) *catalog.Index {
	key := snapshotKey(subjectID)
	if idx, ok := e.snapshots.Get(key); ok {
		return idx
	}

	idx, err := catalog.Load(ctx, e.source, subjectID)
	if err != nil {
		e.logger.WarnWithContext(ctx, "catalog unavailable, resolving against empty index",
			zap.Int64("subject_id", subjectID),
			zap.Error(err))
		return catalog.EmptyIndex(subjectID)
	}

	e.observeFingerprint(ctx, idx)
	e.snapshots.Set(key, idx, e.ttl)
	return idx
}

func (e *Engine) observeFingerprint(ctx context.Context, idx *catalog.Index) {
	fp := idx.Fingerprint()

	e.fpMu.Lock()
	prev, seen := e.fingerprints[idx.SubjectID()]
	e.fingerprints[idx.SubjectID()] = fp
	e.fpMu.Unlock()

	if seen && prev != fp {
		e.logger.InfoWithContext(ctx, "catalog snapshot changed since last load",
			zap.Int64("subject_id", idx.SubjectID()),
			zap.Uint64("previous_fingerprint", prev),
			zap.Uint64("fingerprint", fp))
	}
}

func (e *Engine) publish(ev ChangeEvent) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, sub := range e.subscribers {
		select {
		case sub <- ev:
		default:
			e.logger.Warn("dropping change event for slow subscriber",
				zap.Int64("subject_id", ev.SubjectID))
		}
	}
}

func snapshotKey(subjectID int64) string {
	return strconv.FormatInt(subjectID, 10)
}
