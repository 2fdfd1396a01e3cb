package adapters

import (
	"price-watcher/internal/types"
)

// GenericAdapter has no store knowledge; it relies on the operator's
// selectors and the first złoty amount in the markup.
type GenericAdapter struct {
	*BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter(config *types.Config, logger types.Logger) *GenericAdapter {
	return &GenericAdapter{
		BaseAdapter: NewBaseAdapter(config, logger),
	}
}

// GetStoreName returns the store name
func (g *GenericAdapter) GetStoreName() string {
	return "generic"
}

// ExtractPrice tries the operator's selectors first, then the markup
func (g *GenericAdapter) ExtractPrice(page *types.PageState, item types.Item) *types.PriceObservation {
	attempts := g.selectorAttempts(item.Selector)
	attempts = append(attempts, g.markupAttempt("html-regex:generic", item.AnchorText, 0, commaPricePattern))
	return g.extract(page, attempts)
}
