// Package providers wires the concrete data providers into a registry.
package providers

import (
	"github.com/finbridge/finbridge/internal/cache"
	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/provider"
	"github.com/finbridge/finbridge/internal/providers/financialdatasets"
	"github.com/finbridge/finbridge/internal/providers/finnhub"
	"github.com/finbridge/finbridge/internal/providers/yahoo"
)

// NewRegistry builds the provider registry for the given configuration.
// Registration order is the default-resolution and failover priority:
// finnhub first, then financialdatasets, then yahoo. financialdatasets is
// the key-less fallback: it answers a limited ticker set without any
// credential, so the registry always resolves to something. Handlers are
// constructed lazily by the registry; only the credential presence is
// decided here.
func NewRegistry(cfg *config.Config, store *cache.Store) *provider.Registry {
	reg := provider.NewRegistry(cfg.Provider)

	finnhubKey := cfg.Finnhub.APIKey
	reg.Register(provider.Finnhub, finnhubKey != "", func() (provider.Handler, error) {
		return finnhub.New(finnhubKey, store)
	})

	fdsKey := cfg.FinancialDatasets.APIKey
	reg.Register(provider.FinancialDatasets, fdsKey != "", func() (provider.Handler, error) {
		return financialdatasets.New(fdsKey, store)
	})

	reg.Register(provider.Yahoo, false, func() (provider.Handler, error) {
		return yahoo.New(store)
	})

	reg.SetKeylessFallback(provider.FinancialDatasets)
	return reg
}
