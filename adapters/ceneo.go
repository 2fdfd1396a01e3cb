package adapters

import (
	"regexp"
	"strings"

	"price-watcher/internal/types"
)

// withSpaces expands the SP placeholder in a price pattern to spaceClass
func withSpaces(pattern string) *regexp.Regexp {
	return regexp.MustCompile(strings.ReplaceAll(pattern, "SP", spaceClass))
}

// Grouped thousands are tried before an ungrouped run so "12399,00" is not
// read as "399,00".
var (
	commaPricePattern  = withSpaces(`(?i)(\d{1,3}(?:SP\d{3})+|\d+),(\d{2})SP*zł`)
	spacedPricePattern = withSpaces(`(?i)(\d{1,3}(?:SP\d{3})+|\d+)SP+(\d{2})SP*zł`)
)

// CeneoAdapter reads prices from ceneo.pl product pages
type CeneoAdapter struct {
	*BaseAdapter
}

// NewCeneoAdapter creates a new Ceneo adapter
func NewCeneoAdapter(config *types.Config, logger types.Logger) *CeneoAdapter {
	return &CeneoAdapter{
		BaseAdapter: NewBaseAdapter(config, logger),
	}
}

// GetStoreName returns the store name
func (c *CeneoAdapter) GetStoreName() string {
	return "ceneo"
}

// ExtractPrice reads the split value/penny price block, falling back to the
// first amount in the markup.
func (c *CeneoAdapter) ExtractPrice(page *types.PageState, item types.Item) *types.PriceObservation {
	attempts := []attempt{
		c.structuralAttempt("ceneo:dom:value+penny", "span.price span.value", "span.price span.penny"),
		c.markupAttempt("ceneo:regex", item.AnchorText, 0, commaPricePattern, spacedPricePattern),
	}
	attempts = append(attempts, c.selectorAttempts(item.Selector)...)
	return c.extract(page, attempts)
}
