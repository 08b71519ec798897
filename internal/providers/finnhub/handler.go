// Package finnhub implements the Finnhub (finnhub.io) data provider.
// Finnhub authenticates via the X-Finnhub-Token header and requires an API
// key for every endpoint.
//
// Docs: https://finnhub.io/docs/api
package finnhub

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/phuslu/log"

	"github.com/finbridge/finbridge/internal/cache"
	"github.com/finbridge/finbridge/internal/infra"
	"github.com/finbridge/finbridge/internal/provider"
	"github.com/finbridge/finbridge/pkg/models"
	"github.com/finbridge/finbridge/pkg/utils"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// lineItemMap translates canonical line-item names to Finnhub's financial
// statement field names. Requested names without an entry are skipped
// silently; schema drift between providers is tolerated, not fatal.
var lineItemMap = map[string]string{
	"capital_expenditure":                        "capitalExpenditures",
	"depreciation_and_amortization":              "depreciationAndAmortization",
	"net_income":                                 "netIncome",
	"outstanding_shares":                         "outstandingShares",
	"total_assets":                               "totalAssets",
	"total_liabilities":                          "totalLiabilities",
	"revenue":                                    "revenue",
	"free_cash_flow":                             "freeCashFlow",
	"dividends_and_other_cash_distributions":     "dividendsPaid",
	"issuance_or_purchase_of_equity_shares":      "issuanceOfCapitalStock",
	"research_and_development":                   "researchAndDevelopment",
	"operating_income":                           "operatingIncome",
	"cash_and_equivalents":                       "cashAndCashEquivalents",
	"shareholders_equity":                        "totalShareholdersEquity",
	"earnings_per_share":                         "dilutedEPS",
}

// Handler implements provider.Handler for Finnhub.
type Handler struct {
	provider.Base
	client  *infra.Client
	baseURL string
	apiKey  string
}

// New creates a Finnhub handler. Fails fast when the API key is absent.
func New(apiKey string, store *cache.Store) (*Handler, error) {
	if apiKey == "" {
		return nil, &provider.ConfigError{
			Provider: provider.Finnhub,
			Detail:   "FINNHUB_API_KEY is not set",
		}
	}
	return &Handler{
		Base:    provider.NewBase(provider.Finnhub, store),
		client:  infra.NewClient(infra.WithRateLimit(5)),
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}, nil
}

// SetBaseURL points the handler at a different endpoint root. Used by tests.
func (h *Handler) SetBaseURL(u string) { h.baseURL = u }

func (h *Handler) headers() map[string]string {
	return map[string]string{"X-Finnhub-Token": h.apiKey}
}

// GetPrices returns daily bars for [startDate, endDate], ascending by date.
func (h *Handler) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	startDate = utils.NormalizeDate(startDate)
	endDate = utils.NormalizeDate(endDate)

	return provider.FetchThrough(&h.Base, cache.KindPrices, ticker,
		func() []models.Price { return h.Store().Prices(ticker) },
		func(rs []models.Price) []models.Price { return provider.FilterRange(rs, startDate, endDate) },
		func() ([]models.Price, error) { return h.fetchCandles(ctx, ticker, startDate, endDate) },
		func(batch []models.Price) { h.Store().SetPrices(ticker, batch) },
	)
}

func (h *Handler) fetchCandles(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	from, err := utils.UnixStart(startDate)
	if err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/candle", err)
	}
	to, err := utils.UnixStart(endDate)
	if err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/candle", err)
	}
	to += 86400 // include the end date's session

	url := fmt.Sprintf("%s/stock/candle?symbol=%s&resolution=D&from=%d&to=%d",
		h.baseURL, ticker, from, to)

	var resp candleResponse
	if err := h.client.GetJSON(ctx, url, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/candle", err)
	}
	if resp.Status == "no_data" {
		return nil, nil
	}

	prices := make([]models.Price, 0, len(resp.Timestamps))
	for i := range resp.Timestamps {
		if i >= len(resp.Open) || i >= len(resp.High) || i >= len(resp.Low) ||
			i >= len(resp.Close) || i >= len(resp.Volume) {
			// Ragged arrays mean a malformed bar; skip it rather than abort.
			log.Debug().Str("ticker", ticker).Int("index", i).
				Msg("finnhub candle arrays misaligned, skipping bar")
			continue
		}
		prices = append(prices, models.Price{
			Ticker: ticker,
			Time:   time.Unix(resp.Timestamps[i], 0).UTC().Format("2006-01-02"),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: int64(resp.Volume[i]),
		})
	}
	return prices, nil
}

// GetFinancialMetrics returns up to limit metric rows with report_period <=
// endDate, most recent first. Finnhub exposes a single all-metrics endpoint,
// so one fetched row represents the latest reported period.
func (h *Handler) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	endDate = utils.NormalizeDate(endDate)

	out, err := provider.FetchThrough(&h.Base, cache.KindFinancialMetrics, ticker,
		func() []models.FinancialMetrics { return h.Store().FinancialMetrics(ticker) },
		func(rs []models.FinancialMetrics) []models.FinancialMetrics {
			return provider.FilterRange(rs, "", endDate)
		},
		func() ([]models.FinancialMetrics, error) { return h.fetchMetrics(ctx, ticker, period) },
		func(batch []models.FinancialMetrics) { h.Store().SetFinancialMetrics(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchMetrics(ctx context.Context, ticker, period string) ([]models.FinancialMetrics, error) {
	url := fmt.Sprintf("%s/stock/metric?symbol=%s&metric=all", h.baseURL, ticker)
	var resp metricResponse
	if err := h.client.GetJSON(ctx, url, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/metric", err)
	}
	if len(resp.Metric) == 0 {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/metric",
			fmt.Errorf("no metrics for %s", ticker))
	}

	m := resp.Metric
	row := models.FinancialMetrics{
		Ticker:       ticker,
		ReportPeriod: h.latestRatioPeriod(ctx, ticker),
		Period:       period,

		// Field mapping from Finnhub metric names to the canonical shape.
		ReturnOnEquity:       num(m, "roeTTM"),
		ReturnOnAssets:       num(m, "roaTTM"),
		GrossMargin:          num(m, "grossMarginTTM"),
		OperatingMargin:      num(m, "operatingMarginTTM"),
		NetMargin:            num(m, "netProfitMarginTTM"),
		DebtToEquity:         num(m, "totalDebt/totalEquityQuarterly"),
		CurrentRatio:         num(m, "currentRatioQuarterly"),
		QuickRatio:           num(m, "quickRatioQuarterly"),
		InterestCoverage:     num(m, "netInterestCoverageTTM"),
		DividendYield:        num(m, "dividendYieldIndicatedAnnual"),
		PayoutRatio:          num(m, "payoutRatioTTM"),
		PriceToEarningsRatio: num(m, "peBasicExclExtraTTM"),
		PriceToBookRatio:     num(m, "pbQuarterly"),
		PriceToSalesRatio:    num(m, "psTTM"),
		RevenueGrowth:        num(m, "revenueGrowthTTMYoy"),
		EarningsGrowth:       num(m, "epsGrowthTTMYoy"),
		EarningsPerShare:     num(m, "epsBasicExclExtraItemsTTM"),
		MarketCap:            scaled(num(m, "marketCapitalization"), 1e6),
		EnterpriseValue:      scaled(num(m, "enterpriseValue"), 1e6),
		EVToRevenue:          num(m, "currentEv/sales"),
		EVToEBITDA:           num(m, "currentEv/ebitda"),
	}
	return []models.FinancialMetrics{row}, nil
}

// latestRatioPeriod asks the financial-ratios endpoint for the most recent
// annual report period. Falls back to today when the endpoint has nothing:
// the ttm row is then keyed on the fetch date, which callers accept.
func (h *Handler) latestRatioPeriod(ctx context.Context, ticker string) string {
	url := fmt.Sprintf("%s/stock/financial-ratios?symbol=%s", h.baseURL, ticker)
	var resp ratiosResponse
	if err := h.client.GetJSON(ctx, url, h.headers(), &resp); err != nil {
		log.Debug().Err(err).Str("ticker", ticker).
			Msg("finnhub financial-ratios unavailable, keying metrics on today")
		return time.Now().UTC().Format("2006-01-02")
	}
	for _, series := range resp.Series.Annual {
		if len(series) > 0 {
			if p := series[len(series)-1].Period; p != "" {
				return utils.NormalizeDate(p)
			}
		}
	}
	return time.Now().UTC().Format("2006-01-02")
}

// SearchLineItems extracts the requested statement values from Finnhub's
// annual financials. Names without a lineItemMap entry are skipped.
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
		func() ([]models.LineItem, error) { return h.fetchLineItems(ctx, ticker, lineItems, endDate, period) },
		func(batch []models.LineItem) { h.Store().SetLineItems(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string) ([]models.LineItem, error) {
	url := fmt.Sprintf("%s/stock/financials?symbol=%s&statement=all&freq=annual", h.baseURL, ticker)
	var resp financialsResponse
	if err := h.client.GetJSON(ctx, url, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/financials", err)
	}

	endYear := 0
	if len(endDate) >= 4 {
		endYear, _ = strconv.Atoi(endDate[:4])
	}
	var out []models.LineItem
	for _, stmt := range resp.Financials {
		if stmt.Year == 0 || (endYear > 0 && stmt.Year > endYear) {
			continue
		}
		reportPeriod := fmt.Sprintf("%d-12-31", stmt.Year) // annual reports
		for _, name := range lineItems {
			finnhubName, ok := lineItemMap[name]
			if !ok {
				log.Debug().Str("line_item", name).Str("provider", provider.Finnhub).
					Msg("no field mapping for requested line item, skipping")
				continue
			}
			value, ok := stmt.Fields[finnhubName]
			if !ok {
				continue
			}
			out = append(out, models.LineItem{
				Ticker:       ticker,
				LineItem:     name,
				Value:        models.Float64(value),
				ReportPeriod: reportPeriod,
				Period:       period,
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
		func() ([]models.InsiderTrade, error) { return h.fetchInsiderTrades(ctx, ticker) },
		func(batch []models.InsiderTrade) { h.Store().SetInsiderTrades(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchInsiderTrades(ctx context.Context, ticker string) ([]models.InsiderTrade, error) {
	url := fmt.Sprintf("%s/stock/insider-transactions?symbol=%s", h.baseURL, ticker)
	var resp insiderResponse
	if err := h.client.GetJSON(ctx, url, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/stock/insider-transactions", err)
	}

	trades := make([]models.InsiderTrade, 0, len(resp.Data))
	for _, t := range resp.Data {
		value := t.Value
		if value == 0 {
			value = t.Share * t.TransactionPrice
		}
		trades = append(trades, models.InsiderTrade{
			Ticker:          ticker,
			FilingDate:      utils.NormalizeDate(t.FilingDate),
			TransactionDate: utils.NormalizeDate(t.TransactionDate),
			InsiderName:     t.Name,
			Title:           t.OfficerTitle,
			TransactionType: t.TransactionCode,
			Shares:          t.Share,
			Price:           t.TransactionPrice,
			Value:           value,
		})
	}
	return trades, nil
}

// GetCompanyNews returns news in the window, most recent first. When no start
// date is given the fetch window defaults to the 30 days before endDate.
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
			from := startDate
			if from == "" {
				from = utils.DaysBefore(endDate, 30)
			}
			return h.fetchCompanyNews(ctx, ticker, from, endDate)
		},
		func(batch []models.CompanyNews) { h.Store().SetCompanyNews(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchCompanyNews(ctx context.Context, ticker, from, to string) ([]models.CompanyNews, error) {
	url := fmt.Sprintf("%s/company-news?symbol=%s&from=%s&to=%s", h.baseURL, ticker, from, to)
	var items []newsItem
	if err := h.client.GetJSON(ctx, url, h.headers(), &items); err != nil {
		return nil, provider.Fetchf(provider.Finnhub, "/company-news", err)
	}

	news := make([]models.CompanyNews, 0, len(items))
	for _, item := range items {
		news = append(news, models.CompanyNews{
			Ticker:   ticker,
			Date:     time.Unix(item.Datetime, 0).UTC().Format("2006-01-02"),
			Headline: item.Headline,
			Summary:  item.Summary,
			Source:   item.Source,
			URL:      item.URL,
		})
	}
	return news, nil
}

// GetMarketCap returns the current market capitalization from the company
// profile. Finnhub reports it in millions and has no historical endpoint, so
// endDate is ignored. Never cached.
func (h *Handler) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error) {
	url := fmt.Sprintf("%s/stock/profile2?symbol=%s", h.baseURL, ticker)
	var profile profileResponse
	if err := h.client.GetJSON(ctx, url, h.headers(), &profile); err != nil {
		return 0, provider.Fetchf(provider.Finnhub, "/stock/profile2", err)
	}
	if profile.MarketCapitalization == 0 {
		return 0, provider.Fetchf(provider.Finnhub, "/stock/profile2",
			fmt.Errorf("no market cap for %s", ticker))
	}
	return profile.MarketCapitalization * 1e6, nil
}

// num looks up a metric field and returns nil when the provider did not
// report it, per the silent-skip policy for schema drift.
func num(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return models.Float64(v)
	}
	return nil
}

// scaled multiplies a metric in place, preserving absence.
func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float64(*v * factor)
}
