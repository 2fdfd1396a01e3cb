package adapters

import (
	"price-watcher/internal/types"
)

// mediaExpertWindow bounds how far past the anchor text a price may appear
const mediaExpertWindow = 12000

// MediaExpertAdapter reads prices from mediaexpert.pl product pages
type MediaExpertAdapter struct {
	*BaseAdapter
}

// NewMediaExpertAdapter creates a new Media Expert adapter
func NewMediaExpertAdapter(config *types.Config, logger types.Logger) *MediaExpertAdapter {
	return &MediaExpertAdapter{
		BaseAdapter: NewBaseAdapter(config, logger),
	}
}

// GetStoreName returns the store name
func (m *MediaExpertAdapter) GetStoreName() string {
	return "mediaexpert"
}

// ExtractPrice reads the whole/cents price block. The markup fallback is
// anchored on the item's landmark text because listing pages carry many
// unrelated prices; Media Expert renders cents after a space ("2 242 01 zł").
func (m *MediaExpertAdapter) ExtractPrice(page *types.PageState, item types.Item) *types.PriceObservation {
	attempts := []attempt{
		m.structuralAttempt("mediaexpert:dom:whole+cents", "div.main-price span.whole", "div.main-price span.cents"),
		m.markupAttempt("html-regex:mediaexpert", item.AnchorText, mediaExpertWindow, spacedPricePattern, commaPricePattern),
	}
	attempts = append(attempts, m.selectorAttempts(item.Selector)...)
	return m.extract(page, attempts)
}
