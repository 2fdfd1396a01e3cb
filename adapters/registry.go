package adapters

import (
	"fmt"
	"sort"

	"price-watcher/internal/types"
)

type factory func(config *types.Config, logger types.Logger) types.PriceAdapter

var registry = map[types.Strategy]factory{
	types.StrategyCeneo: func(c *types.Config, l types.Logger) types.PriceAdapter {
		return NewCeneoAdapter(c, l)
	},
	types.StrategyXKom: func(c *types.Config, l types.Logger) types.PriceAdapter {
		return NewXKomAdapter(c, l)
	},
	types.StrategyMediaExpert: func(c *types.Config, l types.Logger) types.PriceAdapter {
		return NewMediaExpertAdapter(c, l)
	},
	types.StrategyGeneric: func(c *types.Config, l types.Logger) types.PriceAdapter {
		return NewGenericAdapter(c, l)
	},
}

// New returns the adapter for strategy. An empty strategy selects Ceneo.
func New(strategy types.Strategy, config *types.Config, logger types.Logger) (types.PriceAdapter, error) {
	if strategy == "" {
		strategy = types.StrategyCeneo
	}
	create, ok := registry[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStrategy, strategy)
	}
	return create(config, logger), nil
}

// Strategies lists the registered strategy names
func Strategies() []string {
	names := make([]string, 0, len(registry))
	for s := range registry {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}
