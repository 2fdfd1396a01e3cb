package adapters

import (
	"fmt"
	"regexp"
	"strings"

	"price-watcher/internal/price"
	"price-watcher/internal/types"

	"github.com/PuerkitoBio/goquery"
)

// spaceClass matches the separators shops put between thousand groups.
// Entities are rewritten to U+00A0 before patterns run.
const spaceClass = `[\s\x{00A0}\x{202F}]`

var entitySpaces = strings.NewReplacer("&nbsp;", "\u00a0", "&#160;", "\u00a0", "&#xA0;", "\u00a0")

// commonCookieSelectors are tried after the store-specific consent buttons.
// Entries starting with "//" are XPath.
var commonCookieSelectors = []string{
	"#onetrust-accept-btn-handler",
	`//button[contains(normalize-space(.), 'ZAAKCEPTUJ WSZYSTKIE')]`,
	`//button[contains(normalize-space(.), 'Zaakceptuj wszystkie')]`,
	`//button[contains(normalize-space(.), 'W porządku')]`,
	`//button[contains(normalize-space(.), 'Akceptuj')]`,
}

// BaseAdapter provides common functionality for store adapters.
// Store adapters embed it and only declare their ordered extraction
// attempts and consent buttons.
type BaseAdapter struct {
	config *types.Config // Configuration settings (timeouts, browser settings, etc.)
	logger types.Logger  // Structured logging interface
}

// NewBaseAdapter creates a new base adapter
func NewBaseAdapter(config *types.Config, logger types.Logger) *BaseAdapter {
	return &BaseAdapter{
		config: config,
		logger: logger,
	}
}

// ParseHTML parses HTML content into a goquery document
func (b *BaseAdapter) ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ExtractText extracts the whitespace-collapsed text of the first element
// matching a CSS selector
func (b *BaseAdapter) ExtractText(doc *goquery.Document, selector string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	return collapseSpaces(element.Text()), nil
}

// ExtractAttribute extracts an attribute value from an element
func (b *BaseAdapter) ExtractAttribute(doc *goquery.Document, selector string, attribute string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	value, exists := element.Attr(attribute)
	if !exists {
		return "", fmt.Errorf("attribute %s not found on element %s", attribute, selector)
	}

	return strings.TrimSpace(value), nil
}

// Config returns the config field of the BaseAdapter
func (b *BaseAdapter) Config() *types.Config {
	return b.config
}

// CookieSelectors returns the shared consent buttons
func (b *BaseAdapter) CookieSelectors() []string {
	return commonCookieSelectors
}

// candidate is what an attempt read from the page: raw is reported as found,
// text is what gets normalized (raw when empty).
type candidate struct {
	raw  string
	text string
}

// attempt is one extraction rule. It returns a zero candidate when nothing
// was found.
type attempt struct {
	method string
	read   func(doc *goquery.Document, markup string) candidate
}

// extract runs attempts in order; the first one producing a parseable
// amount wins.
func (b *BaseAdapter) extract(page *types.PageState, attempts []attempt) *types.PriceObservation {
	if page == nil || page.HTML == "" {
		return nil
	}
	doc, err := b.ParseHTML(page.HTML)
	if err != nil {
		b.logger.Warnf("Failed to parse page markup: %v", err)
		return nil
	}
	markup := entitySpaces.Replace(page.HTML)

	fns := make([]func() (*types.PriceObservation, bool), 0, len(attempts))
	for _, a := range attempts {
		a := a
		fns = append(fns, func() (*types.PriceObservation, bool) {
			c := a.read(doc, markup)
			if c.raw == "" {
				return nil, false
			}
			text := c.text
			if text == "" {
				text = c.raw
			}
			amount, ok := price.Normalize(text)
			if !ok {
				b.logger.Debugf("Attempt %s found %q but it is not a price", a.method, c.raw)
				return nil, false
			}
			return &types.PriceObservation{
				AmountMinorUnits: amount,
				RawText:          c.raw,
				Method:           a.method,
			}, true
		})
	}

	obs, ok := FirstMatch(fns...)
	if !ok {
		return nil
	}
	b.logger.Debugf("Price %d extracted with %s", obs.AmountMinorUnits, obs.Method)
	return obs
}

// structuralAttempt reads a major-amount element and an optional
// minor-amount element and joins them as "<major>,<minor>".
func (b *BaseAdapter) structuralAttempt(method, majorSelector, minorSelector string) attempt {
	return attempt{
		method: method,
		read: func(doc *goquery.Document, _ string) candidate {
			major, err := b.ExtractText(doc, majorSelector)
			if err != nil || major == "" {
				return candidate{}
			}
			if minorSelector == "" {
				return candidate{raw: major}
			}
			if minor, err := b.ExtractText(doc, minorSelector); err == nil && minor != "" {
				return candidate{raw: major + normalizeMinor(minor)}
			}
			return candidate{raw: major}
		},
	}
}

// normalizeMinor makes sure the minor part starts with a decimal marker,
// e.g. "5" becomes ",05" and "99" becomes ",99".
func normalizeMinor(text string) string {
	if strings.HasPrefix(text, ",") || strings.HasPrefix(text, ".") {
		return text
	}
	digits := digitsOnly(text)
	for len(digits) < 2 {
		digits = "0" + digits
	}
	return "," + digits
}

// markupAttempt searches the rendered markup with patterns whose first group
// is the major amount and second group the two fraction digits. When anchor
// is set and present, only window bytes following it are searched.
func (b *BaseAdapter) markupAttempt(method string, anchor string, window int, patterns ...*regexp.Regexp) attempt {
	return attempt{
		method: method,
		read: func(_ *goquery.Document, markup string) candidate {
			chunk := markupChunk(markup, anchor, window)
			for _, re := range patterns {
				m := re.FindStringSubmatch(chunk)
				if m == nil {
					continue
				}
				whole := digitsOnly(m[1])
				fraction := "00"
				if len(m) > 2 && m[2] != "" {
					fraction = m[2]
				}
				return candidate{
					raw:  collapseSpaces(m[0]),
					text: whole + "," + fraction + " " + price.CurrencySuffix,
				}
			}
			return candidate{}
		},
	}
}

func markupChunk(markup, anchor string, window int) string {
	start := 0
	if anchor != "" {
		if idx := strings.Index(markup, anchor); idx >= 0 {
			start = idx
		}
	}
	if window <= 0 || anchor == "" {
		return markup[start:]
	}
	end := start + window
	if end > len(markup) {
		end = len(markup)
	}
	return markup[start:end]
}

// selectorAttempts turns an operator-supplied, comma-separated selector list
// into one attempt per selector.
func (b *BaseAdapter) selectorAttempts(selectors string) []attempt {
	var attempts []attempt
	for _, sel := range strings.Split(selectors, ",") {
		sel := strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		attempts = append(attempts, attempt{
			method: "selector:" + sel,
			read: func(doc *goquery.Document, _ string) candidate {
				text, err := b.ExtractText(doc, sel)
				if err != nil {
					return candidate{}
				}
				return candidate{raw: text}
			},
		})
	}
	return attempts
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
