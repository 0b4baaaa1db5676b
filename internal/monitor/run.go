// Package monitor orchestrates one end-to-end pass: scrape the basket
// across every source, diff against the prior snapshot, send the alert,
// and persist the new snapshot regardless of alert outcome.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dstanway/grocermon/internal/alert"
	"github.com/dstanway/grocermon/internal/detect"
	"github.com/dstanway/grocermon/internal/notify"
	"github.com/dstanway/grocermon/internal/record"
	"github.com/dstanway/grocermon/internal/scrape"
	"github.com/dstanway/grocermon/internal/snapshot"
)

// Runner wires the pipeline stages together for one deployment.
type Runner struct {
	Title     string
	Basket    []record.Item
	Sources   []scrape.Source
	Snapshots *snapshot.Store
	Threshold detect.Threshold
	Notifier  notify.Notifier
	Log       zerolog.Logger
	Now       func() time.Time
}

// RunResult summarizes a completed pass for CLI reporting.
type RunResult struct {
	RunID    string               `json:"run_id"`
	Observed int                  `json:"observed"`
	Failed   int                  `json:"failed"`
	Events   []detect.ChangeEvent `json:"events"`
	Notified bool                 `json:"notified"`
	Message  string               `json:"-"`
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes one monitoring pass. A corrupt prior snapshot or a failed
// save aborts the run; scrape and delivery failures do not.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	log := r.Log.With().Str("run_id", runID).Logger()

	prior, err := r.Snapshots.Load()
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: runID}
	current := r.scrapeAll(ctx, log, result)

	events := detect.Diff(current, prior, r.Threshold)
	result.Events = events
	log.Info().
		Int("observed", result.Observed).
		Int("failed", result.Failed).
		Int("events", len(events)).
		Msg("pass complete")

	if msg := alert.ComposeChanges(r.Title, events, r.now()); msg != "" {
		result.Message = msg
		if err := r.Notifier.Send(ctx, msg); err != nil {
			// An undelivered alert must not block persistence; the next
			// run would otherwise re-announce the same moves.
			log.Error().Err(err).Msg("alert delivery failed")
		} else {
			result.Notified = true
		}
	}

	if err := r.Snapshots.Save(current); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return result, nil
}

// Daily executes a summary pass: fresh scrape, daily message, no diffing
// and no snapshot update.
func (r *Runner) Daily(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	log := r.Log.With().Str("run_id", runID).Logger()

	result := &RunResult{RunID: runID}
	current := r.scrapeAll(ctx, log, result)

	msg := alert.ComposeDaily(r.Title, current, r.Basket)
	result.Message = msg
	if err := r.Notifier.Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("summary delivery failed")
	} else {
		result.Notified = true
	}
	return result, nil
}

func (r *Runner) scrapeAll(ctx context.Context, log zerolog.Logger, result *RunResult) record.Snapshot {
	snap := record.Snapshot{}
	for _, item := range r.Basket {
		for _, src := range r.Sources {
			rec, err := src.GetPrice(ctx, item)
			if err != nil {
				result.Failed++
				log.Warn().
					Str("item", item.Key).
					Str("store", string(src.Name())).
					Str("kind", string(scrape.Kind(err))).
					Err(err).
					Msg("no price this run")
				continue
			}
			result.Observed++
			log.Info().
				Str("item", item.Key).
				Str("store", string(src.Name())).
				Str("price", rec.Price.StringFixed(2)).
				Str("strategy", rec.Strategy).
				Msg("price observed")
			snap.Set(item.Key, src.Name(), record.ObservationFrom(*rec))
		}
	}
	return snap
}
