package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"price-watcher/internal/state"
	"price-watcher/internal/types"
	"price-watcher/notify"
)

type fetchOutcome struct {
	obs *types.PriceObservation
	err error
}

type fakeFetcher struct {
	outcomes   map[string]fetchOutcome
	strategies []string
}

func (f *fakeFetcher) FetchPrice(ctx context.Context, item types.Item, adapter types.PriceAdapter) (*types.PriceObservation, error) {
	f.strategies = append(f.strategies, adapter.GetStoreName())
	out, ok := f.outcomes[item.URL]
	if !ok {
		return nil, errors.New("unexpected item")
	}
	return out.obs, out.err
}

type recordingNotifier struct {
	changes   [][]types.ChangeEvent
	summaries [][]types.RunResult
	err       error
}

func (n *recordingNotifier) NotifyChanges(ctx context.Context, changes []types.ChangeEvent, now time.Time) error {
	n.changes = append(n.changes, changes)
	return n.err
}

func (n *recordingNotifier) NotifySummary(ctx context.Context, results []types.RunResult, now time.Time) error {
	n.summaries = append(n.summaries, results)
	return n.err
}

var runTime = time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)

func newTestRunner(t *testing.T, items []types.Item, fetcher *fakeFetcher) (*Runner, *recordingNotifier) {
	config := types.DefaultConfig()
	config.StatePath = filepath.Join(t.TempDir(), "state.json")
	config.Items = items

	notifier := &recordingNotifier{}
	runner := NewRunner(config, testLogger(), fetcher, notifier)
	runner.now = func() time.Time { return runTime }
	return runner, notifier
}

func observed(amount int64) fetchOutcome {
	return fetchOutcome{obs: &types.PriceObservation{AmountMinorUnits: amount, RawText: "raw", Method: "ceneo:regex"}}
}

func seedState(t *testing.T, path string, store state.Store) {
	require.NoError(t, state.Save(path, store))
}

func TestRunOnce_DecreaseProducesOneChange(t *testing.T) {
	items := []types.Item{{Name: "Laptop", URL: "https://www.ceneo.pl/1"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.ceneo.pl/1": observed(219900)}}
	runner, notifier := newTestRunner(t, items, fetcher)
	seedState(t, runner.config.StatePath, state.Store{
		"https://www.ceneo.pl/1": {Name: "Laptop", LastAmountMinorUnits: 239900, LastSeenAt: runTime.Add(-time.Hour)},
	})

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, types.ChangeEvent{Name: "Laptop", URL: "https://www.ceneo.pl/1", FromMinorUnits: 239900, ToMinorUnits: 219900}, report.Changes[0])

	require.Len(t, notifier.changes, 1)
	alert := notify.ChangeAlert(notifier.changes[0], runTime)
	assert.Equal(t, notify.ColorDecrease, alert.Embeds[0].Color)

	require.Len(t, notifier.summaries, 1)
	summary := notify.RunSummary(notifier.summaries[0], runner.config.ChangeThreshold, runTime).Embeds[0].Description
	assert.Contains(t, summary, "⬇️ Decreases: 1")
	assert.Contains(t, summary, "⬆️ Increases: 0")

	store, err := state.Load(runner.config.StatePath)
	require.NoError(t, err)
	assert.Equal(t, int64(219900), store["https://www.ceneo.pl/1"].LastAmountMinorUnits)
}

func TestRunOnce_FailedItemDoesNotStopRun(t *testing.T) {
	items := []types.Item{
		{Name: "Broken", URL: "https://www.ceneo.pl/broken"},
		{Name: "Monitor", URL: "https://www.ceneo.pl/2"},
	}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{
		"https://www.ceneo.pl/broken": {},
		"https://www.ceneo.pl/2":      observed(99900),
	}}
	runner, notifier := newTestRunner(t, items, fetcher)
	previous := types.StateRecord{Name: "Broken", LastAmountMinorUnits: 5000, LastSeenAt: runTime.Add(-time.Hour), Method: "ceneo:regex", RawText: "50,00 zł"}
	seedState(t, runner.config.StatePath, state.Store{"https://www.ceneo.pl/broken": previous})

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].OK)
	assert.Equal(t, types.ErrPriceNotFound.Error(), report.Results[0].Error)
	assert.True(t, report.Results[1].OK)
	assert.Nil(t, report.Results[1].PrevMinorUnits)
	assert.Empty(t, report.Changes)
	assert.Empty(t, notifier.changes)

	store, err := state.Load(runner.config.StatePath)
	require.NoError(t, err)
	assert.Equal(t, previous, store["https://www.ceneo.pl/broken"])
	assert.Equal(t, int64(99900), store["https://www.ceneo.pl/2"].LastAmountMinorUnits)

	summary := notify.RunSummary(notifier.summaries[0], runner.config.ChangeThreshold, runTime).Embeds[0].Description
	assert.Contains(t, summary, "⚠️ **Broken**: price not found on page")
}

func TestRunOnce_SameObservationTwiceIsNotAChange(t *testing.T) {
	items := []types.Item{{Name: "Laptop", URL: "https://www.ceneo.pl/1"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.ceneo.pl/1": observed(239900)}}
	runner, _ := newTestRunner(t, items, fetcher)

	first, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := runner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, first.Changes)
	assert.Empty(t, second.Changes)
	require.NotNil(t, second.Results[0].PrevMinorUnits)
	assert.Equal(t, int64(239900), *second.Results[0].PrevMinorUnits)
}

func TestRunOnce_SkipsItemsWithoutURL(t *testing.T) {
	items := []types.Item{{Name: "No URL"}, {Name: "Laptop", URL: "https://www.ceneo.pl/1"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.ceneo.pl/1": observed(100)}}
	runner, _ := newTestRunner(t, items, fetcher)

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Laptop", report.Results[0].Item.Name)
}

func TestRunOnce_UnknownStrategyIsItemError(t *testing.T) {
	items := []types.Item{
		{Name: "Allegro", URL: "https://allegro.pl/1", Strategy: "allegro"},
		{Name: "Laptop", URL: "https://www.x-kom.pl/1", Strategy: types.StrategyXKom},
	}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.x-kom.pl/1": observed(100)}}
	runner, _ := newTestRunner(t, items, fetcher)

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Contains(t, report.Results[0].Error, "unknown extraction strategy")
	assert.True(t, report.Results[1].OK)
	assert.Equal(t, []string{"xkom"}, fetcher.strategies)
}

func TestRunOnce_PersistenceErrorAbortsRun(t *testing.T) {
	items := []types.Item{
		{Name: "Laptop", URL: "https://www.ceneo.pl/1"},
		{Name: "Monitor", URL: "https://www.ceneo.pl/2"},
	}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{
		"https://www.ceneo.pl/1": observed(100),
		"https://www.ceneo.pl/2": {err: &types.PersistenceError{Resource: "storageState.json", Op: "write", Err: os.ErrPermission}},
	}}
	runner, notifier := newTestRunner(t, items, fetcher)

	report, err := runner.RunOnce(context.Background())

	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, types.IsPersistenceError(err))
	assert.Empty(t, notifier.summaries)
	_, statErr := os.Stat(runner.config.StatePath)
	assert.True(t, os.IsNotExist(statErr), "state must not be written by an aborted run")
}

func TestRunOnce_CorruptStateAbortsRun(t *testing.T) {
	runner, _ := newTestRunner(t, []types.Item{{Name: "Laptop", URL: "https://www.ceneo.pl/1"}}, &fakeFetcher{})
	require.NoError(t, os.WriteFile(runner.config.StatePath, []byte("{"), 0644))

	_, err := runner.RunOnce(context.Background())

	assert.True(t, types.IsPersistenceError(err))
}

func TestRunOnce_NotificationFlags(t *testing.T) {
	items := []types.Item{{Name: "Laptop", URL: "https://www.ceneo.pl/1"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.ceneo.pl/1": observed(100)}}
	runner, notifier := newTestRunner(t, items, fetcher)
	runner.config.NotifyOnChange = false
	runner.config.NotifyOnEveryCheck = false
	seedState(t, runner.config.StatePath, state.Store{"https://www.ceneo.pl/1": {Name: "Laptop", LastAmountMinorUnits: 200}})

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Len(t, report.Changes, 1)
	assert.Empty(t, notifier.changes)
	assert.Empty(t, notifier.summaries)
}

func TestRunOnce_DeliveryFailureIsNotFatal(t *testing.T) {
	items := []types.Item{{Name: "Laptop", URL: "https://www.ceneo.pl/1"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.ceneo.pl/1": observed(100)}}
	runner, notifier := newTestRunner(t, items, fetcher)
	notifier.err = errors.New("unexpected status code: 429")

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Results[0].OK)

	store, err := state.Load(runner.config.StatePath)
	require.NoError(t, err)
	assert.Contains(t, store, "https://www.ceneo.pl/1")
}

func TestRunOnce_ThresholdFiltersSmallChanges(t *testing.T) {
	items := []types.Item{{Name: "Laptop", URL: "https://www.ceneo.pl/1"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchOutcome{"https://www.ceneo.pl/1": observed(239901)}}
	runner, notifier := newTestRunner(t, items, fetcher)
	runner.config.ChangeThreshold = 100
	seedState(t, runner.config.StatePath, state.Store{"https://www.ceneo.pl/1": {Name: "Laptop", LastAmountMinorUnits: 239900}})

	report, err := runner.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.Changes)
	assert.Empty(t, notifier.changes)

	summary := notify.RunSummary(notifier.summaries[0], runner.config.ChangeThreshold, runTime).Embeds[0].Description
	assert.Contains(t, summary, "⬆️ Increases: 0")
	assert.Contains(t, summary, "➖ Unchanged: 1")
}
