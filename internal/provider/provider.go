// Package provider implements the data-access abstraction layer.
// It defines the Handler capability interface that every external data source
// implements, a Registry that resolves and memoizes handler instances, and a
// failover Dispatcher that callers use instead of touching handlers directly.
package provider

import (
	"context"
	"fmt"

	"github.com/finbridge/finbridge/pkg/models"
)

// Provider identifiers. Priority order for default resolution is
// DefaultPriority; Fallback order for failover is the registration order.
const (
	Finnhub           = "finnhub"
	FinancialDatasets = "financialdatasets"
	Yahoo             = "yahoo"
)

// Handler is the capability set every data provider implements.
//
// Dates are inclusive YYYY-MM-DD bounds. List operations consult the shared
// cache first and only hit the network when the cached, range-filtered view
// is empty. Handlers never retry or fail over; that is the Dispatcher's job.
type Handler interface {
	// Name returns the provider identifier.
	Name() string

	// GetPrices returns daily bars for [startDate, endDate], ascending by date.
	GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error)

	// GetFinancialMetrics returns up to limit metric rows with report_period
	// <= endDate, most recent first.
	GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error)

	// SearchLineItems returns the requested statement line items with
	// report_period <= endDate, most recent first. Names the provider cannot
	// map are skipped, not an error.
	SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error)

	// GetInsiderTrades returns insider transactions inside the window, most
	// recent first. Empty startDate means unbounded below.
	GetInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.InsiderTrade, error)

	// GetCompanyNews returns news articles inside the window, most recent
	// first. Empty startDate means unbounded below.
	GetCompanyNews(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.CompanyNews, error)

	// GetMarketCap returns the current market capitalization. Never cached:
	// market cap is a point-in-time snapshot with no natural range key.
	GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error)
}

// ConfigError reports a missing credential or an unresolvable provider.
// Surfaced at handler-construction time; never retried.
type ConfigError struct {
	Provider string
	Detail   string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return "provider configuration: " + e.Detail
	}
	return fmt.Sprintf("provider %q configuration: %s", e.Provider, e.Detail)
}

// FetchError reports a failed provider call: non-success response, transport
// failure, or an unusable payload. The Dispatcher catches it and tries the
// next provider.
type FetchError struct {
	Provider string
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("provider %q fetch %s: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetchf wraps an underlying error as a FetchError for one endpoint.
func Fetchf(providerName, endpoint string, err error) *FetchError {
	return &FetchError{Provider: providerName, Endpoint: endpoint, Err: err}
}
