package extractor

import (
	"context"
	"fmt"
	"time"

	"price-watcher/adapters"
	"price-watcher/internal/types"
)

// MaterialStore loads and saves the session material shared across runs
type MaterialStore interface {
	Load() (*types.SessionMaterial, error)
	Save(material *types.SessionMaterial) error
}

// DebugSink stores diagnostics for a page whose price could not be read
type DebugSink interface {
	Save(itemName, html string, screenshot []byte)
}

// Escalator fetches a price with the cheapest browser mode that works: a
// headless session first, then a visible one where the operator can solve a
// challenge.
type Escalator struct {
	config    *types.Config
	logger    types.Logger
	launcher  types.BrowserLauncher
	gate      types.Gate
	materials MaterialStore
	debug     DebugSink
	detector  *adapters.ChallengeDetector
}

// NewEscalator creates a new escalator
func NewEscalator(config *types.Config, logger types.Logger, launcher types.BrowserLauncher, gate types.Gate, materials MaterialStore, debug DebugSink) *Escalator {
	return &Escalator{
		config:    config,
		logger:    logger,
		launcher:  launcher,
		gate:      gate,
		materials: materials,
		debug:     debug,
		detector:  adapters.NewChallengeDetector(),
	}
}

// FetchPrice returns the current price of item. It returns ErrPriceNotFound
// when the page loaded but no extraction attempt matched. Errors carrying a
// PersistenceError mean the session material could not be read or written.
func (e *Escalator) FetchPrice(ctx context.Context, item types.Item, adapter types.PriceAdapter) (*types.PriceObservation, error) {
	if e.config.HeadlessDefault {
		obs, challenged, err := e.headlessAttempt(ctx, item, adapter)
		if err != nil || !challenged {
			return obs, err
		}
		e.logger.Warnf("Challenge detected for %s, retrying in a visible browser", item.Name)
	}
	return e.headfulAttempt(ctx, item, adapter)
}

// headlessAttempt is the fast path. It gives up as soon as a challenge is
// seen; the session is discarded, never retried in place.
func (e *Escalator) headlessAttempt(ctx context.Context, item types.Item, adapter types.PriceAdapter) (obs *types.PriceObservation, challenged bool, err error) {
	session, err := e.open(ctx, true)
	if err != nil {
		return nil, false, err
	}
	defer e.close(session, item)
	defer func() {
		if serr := e.saveMaterial(ctx, session); serr != nil {
			obs, challenged, err = nil, false, serr
		}
	}()

	page, err := e.load(ctx, session, item)
	if err != nil {
		return nil, false, err
	}
	if ok, reason := e.detector.Detect(page); ok {
		e.logger.Infof("Headless session for %s hit a challenge (%s)", item.Name, reason)
		return nil, true, nil
	}

	obs, err = e.extract(ctx, session, item, adapter)
	return obs, false, err
}

// headfulAttempt opens a visible browser and, when a challenge is still
// shown, waits for the operator without a timeout.
func (e *Escalator) headfulAttempt(ctx context.Context, item types.Item, adapter types.PriceAdapter) (obs *types.PriceObservation, err error) {
	session, err := e.open(ctx, false)
	if err != nil {
		return nil, err
	}
	defer e.close(session, item)
	// saved even when extraction fails so a solved challenge is kept
	defer func() {
		if serr := e.saveMaterial(ctx, session); serr != nil {
			obs, err = nil, serr
		}
	}()

	page, err := e.load(ctx, session, item)
	if err != nil {
		return nil, err
	}
	if ok, reason := e.detector.Detect(page); ok {
		e.logger.Infof("Visible session for %s shows a challenge (%s), waiting for operator", item.Name, reason)
		if err := e.gate.Wait(ctx, item); err != nil {
			return nil, fmt.Errorf("waiting for human verification: %w", err)
		}
	}

	return e.extract(ctx, session, item, adapter)
}

func (e *Escalator) open(ctx context.Context, headless bool) (types.BrowserSession, error) {
	material, err := e.materials.Load()
	if err != nil {
		return nil, err
	}
	if material != nil {
		e.logger.Debugf("Reusing session material (%d cookies)", len(material.Cookies))
	}

	session, err := e.launcher.Launch(ctx, headless, material)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return session, nil
}

// load navigates to the item and returns the page after it settled
func (e *Escalator) load(ctx context.Context, session types.BrowserSession, item types.Item) (*types.PageState, error) {
	e.logger.Debugf("Navigating to %s", item.URL)
	if err := session.Navigate(ctx, item.URL); err != nil {
		return nil, err
	}
	if err := session.Wait(ctx, e.config.SettleDelay); err != nil {
		return nil, err
	}
	return session.Snapshot(ctx)
}

// extract dismisses the consent prompt, reads the price and attaches the
// product image. On failure the page is saved for diagnosis.
func (e *Escalator) extract(ctx context.Context, session types.BrowserSession, item types.Item, adapter types.PriceAdapter) (*types.PriceObservation, error) {
	wait := e.config.SettleDelay
	if e.dismissCookies(ctx, session, adapter) {
		wait = e.config.PostConsentWait
	}
	if err := session.Wait(ctx, wait); err != nil {
		return nil, err
	}

	page, err := session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	obs := adapter.ExtractPrice(page, item)
	if obs == nil {
		e.logger.Warnf("No price found for %s at %s", item.Name, page.URL)
		e.captureDebug(ctx, session, item, page)
		return nil, types.ErrPriceNotFound
	}

	obs.ImageURL = adapters.FindImageURL(page)
	e.logger.Infof("Price for %s: %d (%s)", item.Name, obs.AmountMinorUnits, obs.Method)
	return obs, nil
}

// dismissCookies clicks the first consent button that is present. Missing
// buttons are not an error.
func (e *Escalator) dismissCookies(ctx context.Context, session types.BrowserSession, adapter types.PriceAdapter) bool {
	clicks := make([]func() (string, bool), 0, len(adapter.CookieSelectors()))
	for _, selector := range adapter.CookieSelectors() {
		selector := selector
		clicks = append(clicks, func() (string, bool) {
			return selector, session.Click(ctx, selector, e.config.CookieClickTimeout) == nil
		})
	}

	selector, ok := adapters.FirstMatch(clicks...)
	if ok {
		e.logger.Debugf("Dismissed cookie prompt with %s", selector)
	}
	return ok
}

func (e *Escalator) captureDebug(ctx context.Context, session types.BrowserSession, item types.Item, page *types.PageState) {
	if e.debug == nil {
		return
	}
	screenshot, err := session.Screenshot(ctx)
	if err != nil {
		e.logger.Debugf("Failed to capture screenshot for %s: %v", item.Name, err)
	}
	e.debug.Save(item.Name, page.HTML, screenshot)
}

// saveMaterial persists the session state. Reading it from the browser is
// best-effort; writing it is not.
func (e *Escalator) saveMaterial(ctx context.Context, session types.BrowserSession) error {
	stateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	material, err := session.StorageState(stateCtx)
	if err != nil {
		e.logger.Warnf("Failed to read session material: %v", err)
		return nil
	}
	return e.materials.Save(material)
}

func (e *Escalator) close(session types.BrowserSession, item types.Item) {
	if err := session.Close(); err != nil {
		e.logger.Debugf("Failed to close browser for %s: %v", item.Name, err)
	}
}
