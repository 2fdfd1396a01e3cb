package adapters

import (
	"price-watcher/internal/types"
)

var xkomPricePattern = withSpaces(`(?i)Cena:SP*((?:\d|SP)+),(\d{2})SP*zł`)

// XKomAdapter reads prices from x-kom.pl product pages
type XKomAdapter struct {
	*BaseAdapter
}

// NewXKomAdapter creates a new x-kom adapter
func NewXKomAdapter(config *types.Config, logger types.Logger) *XKomAdapter {
	return &XKomAdapter{
		BaseAdapter: NewBaseAdapter(config, logger),
	}
}

// GetStoreName returns the store name
func (x *XKomAdapter) GetStoreName() string {
	return "xkom"
}

// CookieSelectors returns the x-kom consent button followed by the shared ones
func (x *XKomAdapter) CookieSelectors() []string {
	return append([]string{`button[data-name="AcceptPermissionButton"]`}, commonCookieSelectors...)
}

// ExtractPrice reads the product price box, then the "Cena:" label text
func (x *XKomAdapter) ExtractPrice(page *types.PageState, item types.Item) *types.PriceObservation {
	attempts := []attempt{
		x.structuralAttempt("xkom:dom:productPrice", `[data-name="productPrice"]`, ""),
		x.markupAttempt("html-regex:xkom", "", 0, xkomPricePattern),
	}
	attempts = append(attempts, x.selectorAttempts(item.Selector)...)
	return x.extract(page, attempts)
}
