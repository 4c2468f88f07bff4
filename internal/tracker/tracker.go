// Package tracker implements the batch evaluation pipeline over stored watch
// requests: fetch the page, extract a price, apply the threshold decision,
// and on a hit send the alert and delete the watch.
package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealwatch/pricewatch/internal/metrics"
	"github.com/dealwatch/pricewatch/internal/watch"
)

// Config controls Runner behavior.
type Config struct {
	FetchTimeout  time.Duration
	NotifyTimeout time.Duration
}

// Runner drives one batch over the store's current watch requests. Failures
// of a single request are contained and recorded; they never abort the batch.
type Runner struct {
	store     watch.Store
	fetcher   watch.Fetcher
	extractor watch.Extractor
	notifier  watch.Notifier
	clock     watch.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner.
func New(
	store watch.Store,
	fetcher watch.Fetcher,
	extractor watch.Extractor,
	notifier watch.Notifier,
	clock watch.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &Runner{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		notifier:  notifier,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunBatch snapshots the store once and processes each request through the
// per-item pipeline. Only a store listing failure is returned as an error;
// everything else lands in the outcome.
func (r *Runner) RunBatch(ctx context.Context) (watch.BatchOutcome, error) {
	start := r.now()

	requests, err := r.store.ListAll(ctx)
	if err != nil {
		metrics.ObserveBatch("fatal", r.now().Sub(start))
		return watch.BatchOutcome{}, fmt.Errorf("list watch requests: %w", err)
	}
	if len(requests) == 0 {
		r.logger.Info("no watch requests to process")
		metrics.ObserveBatch("no_work", r.now().Sub(start))
		return watch.BatchOutcome{NoWork: true}, nil
	}

	outcome := watch.BatchOutcome{Total: len(requests)}
	for _, req := range requests {
		// Cancellation stops before the next item, never mid-item.
		if ctx.Err() != nil {
			r.logger.Warn("batch canceled before completion",
				zap.Int("processed", outcome.Fired+outcome.Failed),
				zap.Int("total", outcome.Total),
			)
			break
		}
		fired, failure := r.processItem(ctx, req)
		if fired {
			outcome.Fired++
		}
		if failure != nil {
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, *failure)
			metrics.ObserveItemFailure(string(failure.Stage))
			r.logger.Error("watch request failed",
				zap.String("watch_id", req.ID),
				zap.String("url", req.URL),
				zap.String("stage", string(failure.Stage)),
				zap.String("message", failure.Message),
			)
		}
	}

	metrics.ObserveBatch("completed", r.now().Sub(start))
	r.logger.Info("batch completed",
		zap.Int("total", outcome.Total),
		zap.Int("fired", outcome.Fired),
		zap.Int("failed", outcome.Failed),
	)
	return outcome, nil
}

// processItem runs fetch → extract → decide → notify → delete for one watch
// request. It reports whether the alert fired and any contained failure; a
// delete failure after a delivered notification still counts as fired.
func (r *Runner) processItem(ctx context.Context, req watch.Request) (bool, *watch.ItemFailure) {
	content, err := r.fetchDocument(ctx, req.URL)
	if err != nil {
		return false, itemFailure(req.ID, watch.StageFetch, err)
	}

	signal, err := r.extractor.Extract(content)
	if err != nil {
		return false, itemFailure(req.ID, watch.StageExtract, err)
	}
	if !shouldFire(signal, req.TargetPrice) {
		metrics.ObserveItem("held")
		r.logger.Debug("watch held",
			zap.String("watch_id", req.ID),
			zap.Bool("price_found", signal.Found),
		)
		return false, nil
	}

	subject, body, err := buildAlert(req, signal.Value, r.now())
	if err != nil {
		return false, itemFailure(req.ID, watch.StageNotify, err)
	}
	notifyCtx, cancel := context.WithTimeout(ctx, r.cfg.NotifyTimeout)
	defer cancel()
	if err := r.notifier.Send(notifyCtx, req.NotifyDestination, subject, body); err != nil {
		// The watch stays in the store so a future run can retry it.
		return false, itemFailure(req.ID, watch.StageNotify, err)
	}

	metrics.ObserveItem("fired")
	r.logger.Info("price alert fired",
		zap.String("watch_id", req.ID),
		zap.String("url", req.URL),
		zap.Float64("price", signal.Value),
		zap.Float64("target", req.TargetPrice),
	)

	if err := r.store.DeleteByID(ctx, req.ID); err != nil {
		// Accepted at-least-once tradeoff: the alert was delivered but the
		// watch remains, so the next run may notify again.
		r.logger.Warn("delete after notification failed",
			zap.String("watch_id", req.ID),
			zap.Error(err),
		)
		return true, itemFailure(req.ID, watch.StageDelete, err)
	}
	return true, nil
}

func (r *Runner) fetchDocument(ctx context.Context, url string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	content, err := r.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return content, nil
}

// shouldFire applies the threshold decision. Absence holds; the threshold
// itself is inclusive.
func shouldFire(signal watch.PriceSignal, targetPrice float64) bool {
	if !signal.Found {
		return false
	}
	return signal.Value <= targetPrice
}

func (r *Runner) now() time.Time {
	if r.clock == nil {
		return time.Now().UTC()
	}
	return r.clock.Now()
}

func itemFailure(id string, stage watch.Stage, err error) *watch.ItemFailure {
	return &watch.ItemFailure{RequestID: id, Stage: stage, Message: err.Error()}
}
