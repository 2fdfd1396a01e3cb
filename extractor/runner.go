package extractor

import (
	"context"
	"fmt"
	"time"

	"price-watcher/adapters"
	"price-watcher/internal/state"
	"price-watcher/internal/types"
)

// Fetcher obtains the current price of a single item
type Fetcher interface {
	FetchPrice(ctx context.Context, item types.Item, adapter types.PriceAdapter) (*types.PriceObservation, error)
}

// Notifier delivers the outcome of a run
type Notifier interface {
	NotifyChanges(ctx context.Context, changes []types.ChangeEvent, now time.Time) error
	NotifySummary(ctx context.Context, results []types.RunResult, now time.Time) error
}

// Runner performs one complete check of every configured item
type Runner struct {
	config   *types.Config
	logger   types.Logger
	fetcher  Fetcher
	notifier Notifier
	now      func() time.Time
}

// NewRunner creates a new runner
func NewRunner(config *types.Config, logger types.Logger, fetcher Fetcher, notifier Notifier) *Runner {
	return &Runner{
		config:   config,
		logger:   logger,
		fetcher:  fetcher,
		notifier: notifier,
		now:      time.Now,
	}
}

// RunOnce checks items one at a time, persists the new state snapshot and
// then sends notifications. Item failures are recorded in the report; only
// state or session material I/O failures abort the run, in which case the
// snapshot is left untouched.
func (r *Runner) RunOnce(ctx context.Context) (*types.RunReport, error) {
	report := &types.RunReport{StartedAt: r.now()}
	r.logger.Infof("Starting price check of %d items", len(r.config.Items))

	store, err := state.Load(r.config.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	for i, item := range r.config.Items {
		if item.URL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.logger.Debugf("Checking item %d/%d: %s", i+1, len(r.config.Items), item.Name)

		result := types.RunResult{Item: item}
		obs, err := r.fetch(ctx, item)
		if err != nil {
			if types.IsPersistenceError(err) {
				return nil, fmt.Errorf("run aborted at %s: %w", item.Name, err)
			}
			r.logger.Warnf("Failed to check %s: %v", item.Name, err)
			result.Error = err.Error()
			report.Results = append(report.Results, result)
			continue
		}

		var prev *int64
		store, prev = state.Record(store, item.URL, item.Name, *obs, r.now())
		result.OK = true
		result.Observation = obs
		result.PrevMinorUnits = prev
		report.Results = append(report.Results, result)

		if state.Changed(prev, obs.AmountMinorUnits, r.config.ChangeThreshold) {
			change := types.ChangeEvent{
				Name:           item.Name,
				URL:            item.URL,
				FromMinorUnits: *prev,
				ToMinorUnits:   obs.AmountMinorUnits,
			}
			r.logger.Infof("Price of %s changed by %d", item.Name, change.Delta())
			report.Changes = append(report.Changes, change)
		}
	}

	if err := state.Save(r.config.StatePath, store); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}

	report.FinishedAt = r.now()
	r.notify(ctx, report)

	ok := 0
	for _, res := range report.Results {
		if res.OK {
			ok++
		}
	}
	r.logger.Infof("Price check finished: %d ok, %d failed, %d changes in %v",
		ok, len(report.Results)-ok, len(report.Changes), report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

func (r *Runner) fetch(ctx context.Context, item types.Item) (*types.PriceObservation, error) {
	adapter, err := adapters.New(item.Strategy, r.config, r.logger)
	if err != nil {
		return nil, err
	}
	obs, err := r.fetcher.FetchPrice(ctx, item, adapter)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, types.ErrPriceNotFound
	}
	return obs, nil
}

// notify sends the change alert and the summary. Delivery failures are only
// logged; the state is already saved.
func (r *Runner) notify(ctx context.Context, report *types.RunReport) {
	if r.notifier == nil {
		return
	}
	if r.config.NotifyOnChange && len(report.Changes) > 0 {
		if err := r.notifier.NotifyChanges(ctx, report.Changes, report.FinishedAt); err != nil {
			r.logger.Errorf("Failed to send change alert: %v", err)
		}
	}
	if r.config.NotifyOnEveryCheck {
		if err := r.notifier.NotifySummary(ctx, report.Results, report.FinishedAt); err != nil {
			r.logger.Errorf("Failed to send run summary: %v", err)
		}
	}
}
