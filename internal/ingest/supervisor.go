package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackhub/hackhub/internal/domain"
	hublog "github.com/hackhub/hackhub/internal/log"
	"github.com/hackhub/hackhub/internal/metrics"
	"github.com/hackhub/hackhub/internal/snapshot"
	"github.com/hackhub/hackhub/internal/stream"
	"github.com/hackhub/hackhub/internal/telemetry"
)

// Streamer opens one live provider connection and blocks until it ends.
// Implemented by *stream.Client; stubbed in tests.
type Streamer interface {
	Stream(ctx context.Context, provider string, criteria domain.Criteria, fn stream.Handler) error
}

// Supervisor starts search runs: one concurrent stream per selected provider,
// all feeding a per-run merge store, with completion detected when the last
// connection closes.
type Supervisor struct {
	streamer  Streamer
	snapshots snapshot.Store
}

// NewSupervisor wires a supervisor to a stream client and a snapshot backend.
// snapshots may be nil; runs then keep their results in memory only.
func NewSupervisor(streamer Streamer, snapshots snapshot.Store) *Supervisor {
	return &Supervisor{streamer: streamer, snapshots: snapshots}
}

// Run is one in-flight or completed search operation.
type Run struct {
	ID       string
	Criteria domain.Criteria
	Started  time.Time

	store *Store
	done  chan struct{}

	duplicates atomic.Int64
	filtered   atomic.Int64

	mu         sync.Mutex
	finalCount int
	watchers   []chan domain.Event
}

// Start validates the criteria and launches one goroutine per provider. It
// returns immediately; use Wait or Done to observe completion. Cancelling ctx
// closes every provider connection and completes the run with whatever was
// merged so far. Provider errors are absorbed: a run whose providers all fail
// still completes, with zero records.
func (s *Supervisor) Start(ctx context.Context, criteria domain.Criteria) (*Run, error) {
	criteria = criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	run := &Run{
		ID:       uuid.NewString(),
		Criteria: criteria,
		Started:  time.Now(),
		done:     make(chan struct{}),
	}
	run.store = NewStore(s.mirrorFor(ctx, run.ID))
	run.store.OnInsert(run.notifyWatchers)

	ctx = hublog.ContextWithRunID(ctx, run.ID)
	logger := hublog.WithComponentFromContext(ctx, "ingest")

	providers := criteria.Providers()
	logger.Info().
		Str(hublog.FieldEvent, "run.start").
		Str(hublog.FieldCategory, string(criteria.ScrapeType)).
		Strs("providers", providers).
		Int(hublog.FieldStreams, len(providers)).
		Msg("starting search run")

	ctx, span := telemetry.Tracer("hackhub/ingest").Start(ctx, "search.run")
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.scrape_type", string(criteria.ScrapeType)),
		attribute.Int("run.streams", len(providers)),
	)

	// The WaitGroup is fully added before any stream goroutine starts, so the
	// active count can never reach a stale zero.
	var wg sync.WaitGroup
	wg.Add(len(providers))
	for _, provider := range providers {
		go s.runStream(ctx, &wg, run, provider)
	}

	go func() {
		wg.Wait()
		run.complete(logger)
		span.SetAttributes(attribute.Int("run.accepted", run.FinalCount()))
		span.End()
	}()

	return run, nil
}

// runStream drives a single provider connection to its terminal event.
func (s *Supervisor) runStream(ctx context.Context, wg *sync.WaitGroup, run *Run, provider string) {
	defer wg.Done()

	ctx = hublog.ContextWithProvider(ctx, provider)
	logger := hublog.WithComponentFromContext(ctx, "ingest")

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	err := s.streamer.Stream(ctx, provider, run.Criteria, func(rec domain.Event) {
		run.ingest(logger, provider, rec)
	})
	if err != nil {
		// Terminal either way: a transport error is handled like a clean
		// end-of-stream, the other providers keep going.
		metrics.IncStreamTermination(provider, "error")
		logger.Warn().
			Err(err).
			Str(hublog.FieldEvent, "stream.closed").
			Msg("provider stream ended with error")
		return
	}
	metrics.IncStreamTermination(provider, "eof")
	logger.Info().
		Str(hublog.FieldEvent, "stream.closed").
		Msg("provider stream ended")
}

// mirrorFor builds the persistence mirror for one run: the collection is
// written under the run's own key and under the "latest" alias, so a restart
// recovers the most recent result set. Failures are logged and swallowed.
func (s *Supervisor) mirrorFor(ctx context.Context, runID string) MirrorFunc {
	if s.snapshots == nil {
		return nil
	}
	logger := hublog.WithComponentFromContext(ctx, "ingest")
	return func(events []domain.Event) {
		for _, key := range []string{snapshot.RunKey(runID), snapshot.KeyLatest} {
			if err := s.snapshots.Write(ctx, key, events); err != nil {
				metrics.IncSnapshotWrite(false)
				logger.Warn().
					Err(err).
					Str(hublog.FieldEvent, "snapshot.write_failed").
					Str(hublog.FieldKey, key).
					Msg("snapshot mirror write failed")
				continue
			}
			metrics.IncSnapshotWrite(true)
		}
	}
}

// ingest runs one record through filter → dedupe → sort → persist.
func (r *Run) ingest(logger zerolog.Logger, provider string, rec domain.Event) {
	if !Accept(rec, r.Criteria) {
		r.filtered.Add(1)
		metrics.IncRecord(provider, metrics.OutcomeFiltered)
		logger.Debug().
			Str(hublog.FieldEvent, "record.filtered").
			Str(hublog.FieldTitle, rec.Title).
			Msg("record rejected by filter")
		return
	}
	if !r.store.Insert(rec) {
		r.duplicates.Add(1)
		metrics.IncRecord(provider, metrics.OutcomeDuplicate)
		logger.Debug().
			Str(hublog.FieldEvent, "record.duplicate").
			Str(hublog.FieldTitle, rec.Title).
			Msg("record rejected as duplicate")
		return
	}
	metrics.IncRecord(provider, metrics.OutcomeAccepted)
}

func (r *Run) complete(logger zerolog.Logger) {
	count := r.store.Len()

	// done is closed while holding mu: a Watch racing with completion either
	// lands in the watcher snapshot below or observes Completed() and gets a
	// closed channel. Either way its channel is closed.
	r.mu.Lock()
	r.finalCount = count
	watchers := r.watchers
	r.watchers = nil
	close(r.done)
	r.mu.Unlock()

	for _, ch := range watchers {
		close(ch)
	}

	metrics.ObserveRunDuration(time.Since(r.Started))
	logger.Info().
		Str(hublog.FieldEvent, "run.complete").
		Int(hublog.FieldAccepted, count).
		Int64(hublog.FieldDuplicates, r.duplicates.Load()).
		Int64(hublog.FieldFiltered, r.filtered.Load()).
		Dur("duration", time.Since(r.Started)).
		Msg("search run completed")
}

// Wait blocks until the run completes (all provider connections closed) or
// ctx is cancelled. It never returns a run-level failure: partial results are
// still useful, so provider errors are absorbed upstream.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the run has completed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Completed reports whether the run has finished.
func (r *Run) Completed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Events returns the current merged collection in display order.
func (r *Run) Events() []domain.Event {
	return r.store.Events()
}

// Count returns the current accepted-record count.
func (r *Run) Count() int {
	return r.store.Len()
}

// FinalCount returns the accepted-record count at completion time. Valid only
// after Done is closed.
func (r *Run) FinalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalCount
}

// Watch returns a channel receiving each record accepted after the call. The
// channel is closed when the run completes. The returned cancel func must be
// called if the watcher stops reading before completion.
func (r *Run) Watch() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 64)

	r.mu.Lock()
	if r.Completed() {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.watchers = append(r.watchers, ch)
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w == ch {
				r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

// notifyWatchers pushes an accepted record to every live watcher. A watcher
// that stopped draining its buffer is skipped rather than blocking the
// pipeline.
func (r *Run) notifyWatchers(rec domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.watchers {
		select {
		case ch <- rec:
		default:
		}
	}
}
