package provider

import (
	"context"
	"sync"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/finbridge/finbridge/pkg/models"
)

// maxConcurrentTickers bounds the multi-ticker fan-out.
const maxConcurrentTickers = 4

// Dispatcher is the façade callers use for every data operation. It resolves
// the default handler, attempts the call, and on any failure walks the
// fallback order before giving up and returning the operation's empty value.
// Dispatcher methods never return an error: the data layer must not crash a
// calling analysis pipeline because one ticker's data is unavailable. Callers
// treat an empty result as "no data".
type Dispatcher struct {
	reg *Registry
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// attempt runs op against the default handler, then against each fallback
// provider in order. Both failure transitions are logged, never raised.
func attempt[T any](d *Dispatcher, op, ticker string, call func(Handler) (T, error)) (T, bool) {
	var zero T

	name, err := d.reg.DefaultName()
	if err != nil {
		log.Error().Err(err).Str("op", op).Str("ticker", ticker).
			Msg("no provider available")
		return zero, false
	}

	primary, err := d.reg.Handler(name)
	if err == nil {
		result, callErr := call(primary)
		if callErr == nil {
			return result, true
		}
		err = callErr
	}
	log.Warn().Err(err).Str("op", op).Str("ticker", ticker).
		Str("provider", name).Msg("primary provider failed, trying fallback")

	for _, alt := range d.reg.FallbackOrder(name) {
		h, herr := d.reg.Handler(alt)
		if herr != nil {
			// Unconstructible fallback (missing credential): skip it.
			log.Debug().Err(herr).Str("op", op).Str("provider", alt).
				Msg("fallback provider unavailable")
			continue
		}
		result, callErr := call(h)
		if callErr == nil {
			return result, true
		}
		log.Warn().Err(callErr).Str("op", op).Str("ticker", ticker).
			Str("provider", alt).Msg("fallback provider failed")
	}

	log.Error().Str("op", op).Str("ticker", ticker).
		Msg("all providers failed, returning empty result")
	return zero, false
}

// GetPrices returns daily bars for the inclusive window, ascending by date.
// Empty slice when every provider fails.
func (d *Dispatcher) GetPrices(ctx context.Context, ticker, startDate, endDate string) []models.Price {
	result, ok := attempt(d, "get_prices", ticker, func(h Handler) ([]models.Price, error) {
		return h.GetPrices(ctx, ticker, startDate, endDate)
	})
	if !ok {
		return []models.Price{}
	}
	return result
}

// GetFinancialMetrics returns up to limit metric rows with report_period <=
// endDate, most recent first. Empty slice when every provider fails.
func (d *Dispatcher) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) []models.FinancialMetrics {
	result, ok := attempt(d, "get_financial_metrics", ticker, func(h Handler) ([]models.FinancialMetrics, error) {
		return h.GetFinancialMetrics(ctx, ticker, endDate, period, limit)
	})
	if !ok {
		return []models.FinancialMetrics{}
	}
	return result
}

// SearchLineItems returns the requested statement line items, most recent
// first. Empty slice when every provider fails.
func (d *Dispatcher) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) []models.LineItem {
	result, ok := attempt(d, "search_line_items", ticker, func(h Handler) ([]models.LineItem, error) {
		return h.SearchLineItems(ctx, ticker, lineItems, endDate, period, limit)
	})
	if !ok {
		return []models.LineItem{}
	}
	return result
}

// GetInsiderTrades returns insider transactions in the window, most recent
// first. Empty slice when every provider fails.
func (d *Dispatcher) GetInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) []models.InsiderTrade {
	result, ok := attempt(d, "get_insider_trades", ticker, func(h Handler) ([]models.InsiderTrade, error) {
		return h.GetInsiderTrades(ctx, ticker, endDate, startDate, limit)
	})
	if !ok {
		return []models.InsiderTrade{}
	}
	return result
}

// GetCompanyNews returns news in the window, most recent first. Empty slice
// when every provider fails.
func (d *Dispatcher) GetCompanyNews(ctx context.Context, ticker, endDate, startDate string, limit int) []models.CompanyNews {
	result, ok := attempt(d, "get_company_news", ticker, func(h Handler) ([]models.CompanyNews, error) {
		return h.GetCompanyNews(ctx, ticker, endDate, startDate, limit)
	})
	if !ok {
		return []models.CompanyNews{}
	}
	return result
}

// GetMarketCap returns the current market capitalization. The second return
// is false when no provider could produce a value.
func (d *Dispatcher) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, bool) {
	return attempt(d, "get_market_cap", ticker, func(h Handler) (float64, error) {
		return h.GetMarketCap(ctx, ticker, endDate)
	})
}

// GetPricesMulti fans out GetPrices across tickers with bounded concurrency.
// Each ticker is an independent call with no cross-ticker ordering guarantee;
// tickers with no available data map to empty slices.
func (d *Dispatcher) GetPricesMulti(ctx context.Context, tickers []string, startDate, endDate string) map[string][]models.Price {
	var mu sync.Mutex
	out := make(map[string][]models.Price, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTickers)
	for _, ticker := range tickers {
		g.Go(func() error {
			prices := d.GetPrices(gctx, ticker, startDate, endDate)
			mu.Lock()
			out[ticker] = prices
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors
	return out
}
