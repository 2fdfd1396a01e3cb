package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"price-watcher/internal/types"
)

// BrowserClient launches Chrome sessions through chromedp
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// Launch starts a fresh browser, headless or visible, and restores the
// given session material into it. The caller owns the returned session and
// must Close it.
func (b *BrowserClient) Launch(ctx context.Context, headless bool, material *types.SessionMaterial) (types.BrowserSession, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 900),
	)
	if b.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.config.UserAgent))
	}
	if b.config.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(b.config.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.logger.Debugf),
		chromedp.WithErrorf(b.logger.Debugf),
	)

	s := &chromeSession{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		config:      b.config,
		logger:      b.logger,
	}

	// first Run starts the browser process
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if material != nil {
		s.origins = append(s.origins, material.Origins...)
		if err := s.restore(material); err != nil {
			b.logger.Warnf("Failed to restore session material: %v", err)
		}
	}

	b.logger.Debugf("Browser started (headless=%t)", headless)
	return s, nil
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      *types.Config
	logger      types.Logger

	// local storage of every origin seen so far, so origins this session
	// never visits survive the next save
	origins []types.OriginStorage
}

// run executes actions on the tab and stops early when ctx is done or the
// timeout expires.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

func (s *chromeSession) restore(material *types.SessionMaterial) error {
	cookies := make([]*network.CookieParam, 0, len(material.Cookies))
	for _, c := range material.Cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: network.CookieSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		cookies = append(cookies, param)
	}

	script, err := localStorageScript(material.Origins)
	if err != nil {
		return err
	}

	return s.run(context.Background(), s.config.NavigationTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		if len(cookies) > 0 {
			if err := network.SetCookies(cookies).Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookies: %w", err)
			}
		}
		if script != "" {
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("failed to install storage script: %w", err)
			}
		}
		return nil
	}))
}

// localStorageScript builds a script that seeds local storage for the
// matching origin before any page script runs.
func localStorageScript(origins []types.OriginStorage) (string, error) {
	if len(origins) == 0 {
		return "", nil
	}
	data, err := json.Marshal(origins)
	if err != nil {
		return "", fmt.Errorf("failed to encode local storage: %w", err)
	}
	return fmt.Sprintf(`(() => {
  const origins = %s;
  for (const o of origins) {
    if (o.origin !== window.location.origin) continue;
    for (const e of (o.localStorage || [])) {
      try { window.localStorage.setItem(e.name, e.value); } catch (_) {}
    }
  }
})();`, data), nil
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.config.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) Snapshot(ctx context.Context) (*types.PageState, error) {
	var state types.PageState
	err := s.run(ctx, s.config.NavigationTimeout,
		chromedp.Location(&state.URL),
		chromedp.Title(&state.Title),
		chromedp.OuterHTML("html", &state.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return &state, nil
}

// Click presses the first visible node matching selector. Selectors starting
// with "//" are XPath expressions, anything else is a CSS query.
func (s *chromeSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	by := chromedp.ByQuery
	if strings.HasPrefix(selector, "//") {
		by = chromedp.BySearch
	}
	return s.run(ctx, timeout, chromedp.Click(selector, by, chromedp.NodeVisible))
}

func (s *chromeSession) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.run(ctx, 0, chromedp.Sleep(d))
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.config.NavigationTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

type pageStorage struct {
	Origin string               `json:"origin"`
	Items  []types.StorageEntry `json:"items"`
}

const pageStorageScript = `(() => {
  const items = [];
  try {
    for (let i = 0; i < window.localStorage.length; i++) {
      const name = window.localStorage.key(i);
      items.push({ name, value: window.localStorage.getItem(name) });
    }
  } catch (_) {}
  return { origin: window.location.origin, items };
})()`

// StorageState captures every cookie in the browser and the local storage
// of the current origin, merged over the origins restored at launch.
func (s *chromeSession) StorageState(ctx context.Context) (*types.SessionMaterial, error) {
	var (
		cookies []*network.Cookie
		current pageStorage
	)
	err := s.run(ctx, s.config.NavigationTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(pageStorageScript, &current),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read session material: %w", err)
	}

	material := &types.SessionMaterial{
		Cookies: make([]types.Cookie, 0, len(cookies)),
	}
	for _, c := range cookies {
		expires := c.Expires
		if c.Session {
			expires = -1
		}
		material.Cookies = append(material.Cookies, types.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}

	material.Origins = mergeOrigins(s.origins, current)
	s.origins = material.Origins
	return material, nil
}

func mergeOrigins(known []types.OriginStorage, current pageStorage) []types.OriginStorage {
	merged := make([]types.OriginStorage, 0, len(known)+1)
	for _, o := range known {
		if o.Origin != current.Origin {
			merged = append(merged, o)
		}
	}
	if current.Origin != "" && current.Origin != "null" {
		merged = append(merged, types.OriginStorage{Origin: current.Origin, LocalStorage: current.Items})
	}
	return merged
}

func (s *chromeSession) Close() error {
	// cancelling the tab context closes the target, the allocator cancel
	// stops the browser process
	s.cancel()
	s.allocCancel()
	return nil
}
