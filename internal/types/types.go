package types

import (
	"context"
	"time"
)

// Strategy selects the site-specific extraction rules for an item
type Strategy string

const (
	StrategyCeneo       Strategy = "ceneo"
	StrategyXKom        Strategy = "xkom"
	StrategyMediaExpert Strategy = "mediaexpert"
	StrategyGeneric     Strategy = "generic"
)

// Item is a single monitored product. Identity is the URL.
type Item struct {
	Name       string   `json:"name" yaml:"name"`
	URL        string   `json:"url" yaml:"url"`
	Strategy   Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Selector   string   `json:"selector,omitempty" yaml:"selector,omitempty"`
	AnchorText string   `json:"anchorText,omitempty" yaml:"anchorText,omitempty"`
}

// PriceObservation is the outcome of one successful extraction attempt
type PriceObservation struct {
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	RawText          string `json:"rawText"`
	Method           string `json:"method"`
	ImageURL         string `json:"imageUrl,omitempty"`
}

// StateRecord is the last observed price of an item
type StateRecord struct {
	Name                 string    `json:"name"`
	LastAmountMinorUnits int64     `json:"lastAmountMinorUnits"`
	LastSeenAt           time.Time `json:"lastSeenAt"`
	Method               string    `json:"method"`
	RawText              string    `json:"rawText"`
}

// ChangeEvent describes a price movement detected during a run
type ChangeEvent struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	FromMinorUnits int64  `json:"fromMinorUnits"`
	ToMinorUnits   int64  `json:"toMinorUnits"`
}

// Delta returns the signed difference between the new and the previous amount.
func (c ChangeEvent) Delta() int64 {
	return c.ToMinorUnits - c.FromMinorUnits
}

// RunResult is the per-item outcome of a run
type RunResult struct {
	Item           Item              `json:"item"`
	OK             bool              `json:"ok"`
	Observation    *PriceObservation `json:"observation,omitempty"`
	PrevMinorUnits *int64            `json:"prevMinorUnits,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// RunReport aggregates everything a single run produced
type RunReport struct {
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Results    []RunResult   `json:"results"`
	Changes    []ChangeEvent `json:"changes"`
}

// PageState is a rendered snapshot of the current browser page
type PageState struct {
	URL   string
	Title string
	HTML  string
}

// SessionMaterial is the browser state reused across runs
type SessionMaterial struct {
	Cookies []Cookie        `json:"cookies"`
	Origins []OriginStorage `json:"origins"`
}

// Cookie is a persisted browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// OriginStorage holds the local storage entries of one origin
type OriginStorage struct {
	Origin       string         `json:"origin"`
	LocalStorage []StorageEntry `json:"localStorage"`
}

// StorageEntry is a single local storage key/value pair
type StorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PriceAdapter defines the interface for site-specific extraction logic
type PriceAdapter interface {
	// GetStoreName returns the strategy name of the store
	GetStoreName() string

	// CookieSelectors returns the consent buttons to try, in priority order
	CookieSelectors() []string

	// ExtractPrice reads the price from a rendered page, nil when nothing matched
	ExtractPrice(page *PageState, item Item) *PriceObservation
}

// BrowserLauncher opens browser sessions
type BrowserLauncher interface {
	Launch(ctx context.Context, headless bool, material *SessionMaterial) (BrowserSession, error)
}

// BrowserSession is a single browser tab owned by one extraction attempt
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (*PageState, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Wait(ctx context.Context, d time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	StorageState(ctx context.Context) (*SessionMaterial, error)
	Close() error
}

// Gate blocks until an operator confirms a challenge was solved
type Gate interface {
	Wait(ctx context.Context, item Item) error
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
