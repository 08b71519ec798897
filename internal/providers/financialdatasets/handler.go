// Package financialdatasets implements the financialdatasets.ai data
// provider. The API serves a free tier without credentials, so the handler
// constructs key-less and simply attaches the X-API-KEY header when one is
// configured.
//
// Docs: https://docs.financialdatasets.ai
package financialdatasets

import (
	"context"
	"fmt"
	"net/url"

	"github.com/finbridge/finbridge/internal/cache"
	"github.com/finbridge/finbridge/internal/infra"
	"github.com/finbridge/finbridge/internal/provider"
	"github.com/finbridge/finbridge/pkg/models"
	"github.com/finbridge/finbridge/pkg/utils"
)

const defaultBaseURL = "https://api.financialdatasets.ai"

// Handler implements provider.Handler for financialdatasets.ai.
type Handler struct {
	provider.Base
	client  *infra.Client
	baseURL string
	apiKey  string
}

// New creates a financialdatasets handler. An empty apiKey is valid: the
// free tier answers a limited ticker set without credentials.
func New(apiKey string, store *cache.Store) (*Handler, error) {
	return &Handler{
		Base:    provider.NewBase(provider.FinancialDatasets, store),
		client:  infra.NewClient(),
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}, nil
}

// SetBaseURL points the handler at a different endpoint root. Used by tests.
func (h *Handler) SetBaseURL(u string) { h.baseURL = u }

func (h *Handler) headers() map[string]string {
	if h.apiKey == "" {
		return nil
	}
	return map[string]string{"X-API-KEY": h.apiKey}
}

// GetPrices returns daily bars for [startDate, endDate], ascending by date.
func (h *Handler) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	startDate = utils.NormalizeDate(startDate)
	endDate = utils.NormalizeDate(endDate)

	return provider.FetchThrough(&h.Base, cache.KindPrices, ticker,
		func() []models.Price { return h.Store().Prices(ticker) },
		func(rs []models.Price) []models.Price { return provider.FilterRange(rs, startDate, endDate) },
		func() ([]models.Price, error) { return h.fetchPrices(ctx, ticker, startDate, endDate) },
		func(batch []models.Price) { h.Store().SetPrices(ticker, batch) },
	)
}

func (h *Handler) fetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	u := fmt.Sprintf("%s/prices/?ticker=%s&interval=day&interval_multiplier=1&start_date=%s&end_date=%s",
		h.baseURL, url.QueryEscape(ticker), startDate, endDate)

	var resp pricesResponse
	if err := h.client.GetJSON(ctx, u, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.FinancialDatasets, "/prices/", err)
	}

	prices := make([]models.Price, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		prices = append(prices, models.Price{
			Ticker: ticker,
			Time:   dateOf(p.Time),
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: int64(p.Volume),
		})
	}
	return prices, nil
}

// GetFinancialMetrics returns up to limit metric rows with report_period <=
// endDate, most recent first. The API payload matches the canonical metric
// shape field for field, so rows unmarshal directly.
func (h *Handler) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	endDate = utils.NormalizeDate(endDate)

	out, err := provider.FetchThrough(&h.Base, cache.KindFinancialMetrics, ticker,
		func() []models.FinancialMetrics { return h.Store().FinancialMetrics(ticker) },
		func(rs []models.FinancialMetrics) []models.FinancialMetrics {
			return provider.FilterRange(rs, "", endDate)
		},
		func() ([]models.FinancialMetrics, error) {
			return h.fetchMetrics(ctx, ticker, endDate, period, limit)
		},
		func(batch []models.FinancialMetrics) { h.Store().SetFinancialMetrics(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/financial-metrics/?ticker=%s&report_period_lte=%s&limit=%d&period=%s",
		h.baseURL, url.QueryEscape(ticker), endDate, limit, period)

	var resp metricsResponse
	if err := h.client.GetJSON(ctx, u, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.FinancialDatasets, "/financial-metrics/", err)
	}
	for i := range resp.FinancialMetrics {
		resp.FinancialMetrics[i].Ticker = ticker
		resp.FinancialMetrics[i].ReportPeriod = dateOf(resp.FinancialMetrics[i].ReportPeriod)
	}
	return resp.FinancialMetrics, nil
}

// SearchLineItems asks the line-item search endpoint for the requested names.
// Each result row carries the requested fields dynamically, so values are
// pulled out of a generic map; absent fields are skipped.
func (h *Handler) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	endDate = utils.NormalizeDate(endDate)
	requested := make(map[string]bool, len(lineItems))
	for _, name := range lineItems {
		requested[name] = true
	}

	out, err := provider.FetchThrough(&h.Base, cache.KindLineItems, ticker,
		func() []models.LineItem { return h.Store().LineItems(ticker) },
		func(rs []models.LineItem) []models.LineItem {
			filtered := provider.FilterRange(rs, "", endDate)
			matched := make([]models.LineItem, 0, len(filtered))
			for _, li := range filtered {
				if requested[li.LineItem] {
					matched = append(matched, li)
				}
			}
			return matched
		},
		func() ([]models.LineItem, error) {
			return h.searchLineItems(ctx, ticker, lineItems, endDate, period, limit)
		},
		func(batch []models.LineItem) { h.Store().SetLineItems(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) searchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	if limit <= 0 {
		limit = 10
	}
	payload := map[string]any{
		"tickers":    []string{ticker},
		"line_items": lineItems,
		"end_date":   endDate,
		"period":     period,
		"limit":      limit,
	}

	var resp lineItemSearchResponse
	if err := h.client.PostJSON(ctx, h.baseURL+"/financials/search/line-items", h.headers(), payload, &resp); err != nil {
		return nil, provider.Fetchf(provider.FinancialDatasets, "/financials/search/line-items", err)
	}

	var out []models.LineItem
	for _, row := range resp.SearchResults {
		reportPeriod := dateOf(stringField(row, "report_period"))
		rowPeriod := stringField(row, "period")
		if rowPeriod == "" {
			rowPeriod = period
		}
		for _, name := range lineItems {
			raw, ok := row[name]
			if !ok {
				continue
			}
			value, ok := raw.(float64)
			if !ok {
				continue
			}
			out = append(out, models.LineItem{
				Ticker:       ticker,
				LineItem:     name,
				Value:        models.Float64(value),
				ReportPeriod: reportPeriod,
				Period:       rowPeriod,
				Currency:     stringField(row, "currency"),
			})
		}
	}
	return out, nil
}

// GetInsiderTrades returns insider transactions in the window, most recent
// first.
func (h *Handler) GetInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.InsiderTrade, error) {
	endDate = utils.NormalizeDate(endDate)
	if startDate != "" {
		startDate = utils.NormalizeDate(startDate)
	}

	out, err := provider.FetchThrough(&h.Base, cache.KindInsiderTrades, ticker,
		func() []models.InsiderTrade { return h.Store().InsiderTrades(ticker) },
		func(rs []models.InsiderTrade) []models.InsiderTrade {
			return provider.FilterRange(rs, startDate, endDate)
		},
		func() ([]models.InsiderTrade, error) {
			return h.fetchInsiderTrades(ctx, ticker, endDate, startDate, limit)
		},
		func(batch []models.InsiderTrade) { h.Store().SetInsiderTrades(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.InsiderTrade, error) {
	if limit <= 0 {
		limit = 1000
	}
	u := fmt.Sprintf("%s/insider-trades/?ticker=%s&filing_date_lte=%s&limit=%d",
		h.baseURL, url.QueryEscape(ticker), endDate, limit)
	if startDate != "" {
		u += "&filing_date_gte=" + startDate
	}

	var resp insiderTradesResponse
	if err := h.client.GetJSON(ctx, u, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.FinancialDatasets, "/insider-trades/", err)
	}
	for i := range resp.InsiderTrades {
		resp.InsiderTrades[i].Ticker = ticker
		resp.InsiderTrades[i].FilingDate = dateOf(resp.InsiderTrades[i].FilingDate)
		resp.InsiderTrades[i].TransactionDate = dateOf(resp.InsiderTrades[i].TransactionDate)
	}
	return resp.InsiderTrades, nil
}

// GetCompanyNews returns news in the window, most recent first.
func (h *Handler) GetCompanyNews(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.CompanyNews, error) {
	endDate = utils.NormalizeDate(endDate)
	if startDate != "" {
		startDate = utils.NormalizeDate(startDate)
	}

	out, err := provider.FetchThrough(&h.Base, cache.KindCompanyNews, ticker,
		func() []models.CompanyNews { return h.Store().CompanyNews(ticker) },
		func(rs []models.CompanyNews) []models.CompanyNews {
			return provider.FilterRange(rs, startDate, endDate)
		},
		func() ([]models.CompanyNews, error) {
			return h.fetchCompanyNews(ctx, ticker, endDate, startDate, limit)
		},
		func(batch []models.CompanyNews) { h.Store().SetCompanyNews(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchCompanyNews(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.CompanyNews, error) {
	if limit <= 0 {
		limit = 100
	}
	u := fmt.Sprintf("%s/news/?ticker=%s&end_date=%s&limit=%d",
		h.baseURL, url.QueryEscape(ticker), endDate, limit)
	if startDate != "" {
		u += "&start_date=" + startDate
	}

	var resp newsResponse
	if err := h.client.GetJSON(ctx, u, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.FinancialDatasets, "/news/", err)
	}
	for i := range resp.News {
		resp.News[i].Ticker = ticker
		resp.News[i].Date = dateOf(resp.News[i].Date)
	}
	return resp.News, nil
}

// GetMarketCap returns the market capitalization from the most recent metric
// row at or before endDate. Never cached.
func (h *Handler) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error) {
	rows, err := h.fetchMetrics(ctx, ticker, utils.NormalizeDate(endDate), "ttm", 1)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].MarketCap == nil {
		return 0, provider.Fetchf(provider.FinancialDatasets, "/financial-metrics/",
			fmt.Errorf("no market cap for %s", ticker))
	}
	return *rows[0].MarketCap, nil
}

// dateOf truncates an RFC 3339 timestamp to its date and normalizes the rest.
func dateOf(s string) string {
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	return utils.NormalizeDate(s)
}

func stringField(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
