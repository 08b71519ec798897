// Package yahoo implements a key-less data provider backed by Yahoo Finance
// public surfaces: the chart API for daily bars, the company RSS feed for
// news, and the quote page for a market-cap snapshot. Fundamentals
// (financial metrics, line items, insider trades) have no public Yahoo
// endpoint and report themselves unsupported so the dispatcher moves on.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/finbridge/finbridge/internal/cache"
	"github.com/finbridge/finbridge/internal/infra"
	"github.com/finbridge/finbridge/internal/provider"
	"github.com/finbridge/finbridge/pkg/models"
	"github.com/finbridge/finbridge/pkg/utils"
)

const (
	defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultFeedURL  = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	defaultQuoteURL = "https://finance.yahoo.com/quote"

	// Yahoo rejects requests without a browser-ish user agent.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// ErrUnsupported marks operations Yahoo has no public endpoint for.
var ErrUnsupported = errors.New("operation not supported")

// Handler implements provider.Handler for Yahoo Finance.
type Handler struct {
	provider.Base
	client   *infra.Client
	parser   *gofeed.Parser
	chartURL string
	feedURL  string
	quoteURL string
}

// New creates a Yahoo handler. No credential is required.
func New(store *cache.Store) (*Handler, error) {
	return &Handler{
		Base:     provider.NewBase(provider.Yahoo, store),
		client:   infra.NewClient(infra.WithRateLimit(2)),
		parser:   gofeed.NewParser(),
		chartURL: defaultChartURL,
		feedURL:  defaultFeedURL,
		quoteURL: defaultQuoteURL,
	}, nil
}

// SetBaseURLs points the handler at different endpoint roots. Used by tests.
func (h *Handler) SetBaseURLs(chart, feed, quote string) {
	h.chartURL = chart
	h.feedURL = feed
	h.quoteURL = quote
}

func (h *Handler) headers() map[string]string {
	return map[string]string{"User-Agent": userAgent}
}

// GetPrices returns daily bars for [startDate, endDate], ascending by date.
func (h *Handler) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	startDate = utils.NormalizeDate(startDate)
	endDate = utils.NormalizeDate(endDate)

	return provider.FetchThrough(&h.Base, cache.KindPrices, ticker,
		func() []models.Price { return h.Store().Prices(ticker) },
		func(rs []models.Price) []models.Price { return provider.FilterRange(rs, startDate, endDate) },
		func() ([]models.Price, error) { return h.fetchChart(ctx, ticker, startDate, endDate) },
		func(batch []models.Price) { h.Store().SetPrices(ticker, batch) },
	)
}

func (h *Handler) fetchChart(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	from, err := utils.UnixStart(startDate)
	if err != nil {
		return nil, provider.Fetchf(provider.Yahoo, "/v8/finance/chart", err)
	}
	to, err := utils.UnixStart(endDate)
	if err != nil {
		return nil, provider.Fetchf(provider.Yahoo, "/v8/finance/chart", err)
	}
	to += 86400 // include the end date's session

	u := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=history",
		h.chartURL, url.PathEscape(ticker), from, to)

	var resp chartResponse
	if err := h.client.GetJSON(ctx, u, h.headers(), &resp); err != nil {
		return nil, provider.Fetchf(provider.Yahoo, "/v8/finance/chart", err)
	}
	if resp.Chart.Error != nil {
		return nil, provider.Fetchf(provider.Yahoo, "/v8/finance/chart",
			fmt.Errorf("%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description))
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	prices := make([]models.Price, 0, len(result.Timestamps))
	for i, ts := range result.Timestamps {
		if i >= len(quote.Open) || quote.Open[i] == nil || quote.High[i] == nil ||
			quote.Low[i] == nil || quote.Close[i] == nil {
			continue // null bar on a holiday or halted session
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		prices = append(prices, models.Price{
			Ticker: ticker,
			Time:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: volume,
		})
	}
	return prices, nil
}

// GetFinancialMetrics is unsupported: Yahoo has no public fundamentals API.
func (h *Handler) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	return nil, provider.Fetchf(provider.Yahoo, "financial-metrics", ErrUnsupported)
}

// SearchLineItems is unsupported.
func (h *Handler) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	return nil, provider.Fetchf(provider.Yahoo, "line-items", ErrUnsupported)
}

// GetInsiderTrades is unsupported.
func (h *Handler) GetInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.InsiderTrade, error) {
	return nil, provider.Fetchf(provider.Yahoo, "insider-trades", ErrUnsupported)
}

// GetCompanyNews returns headlines from the ticker's RSS feed, most recent
// first. The feed only carries recent items, so a window bounded far in the
// past simply yields what the feed still has.
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
		func() ([]models.CompanyNews, error) { return h.fetchFeed(ctx, ticker) },
		func(batch []models.CompanyNews) { h.Store().SetCompanyNews(ticker, batch) },
	)
	if err != nil {
		return nil, err
	}
	return provider.Head(out, limit), nil
}

func (h *Handler) fetchFeed(ctx context.Context, ticker string) ([]models.CompanyNews, error) {
	u := fmt.Sprintf("%s?s=%s&region=US&lang=en-US", h.feedURL, url.QueryEscape(ticker))
	body, err := h.client.Get(ctx, u, h.headers())
	if err != nil {
		return nil, provider.Fetchf(provider.Yahoo, "rss", err)
	}

	feed, err := h.parser.ParseString(string(body))
	if err != nil {
		return nil, provider.Fetchf(provider.Yahoo, "rss", err)
	}

	news := make([]models.CompanyNews, 0, len(feed.Items))
	for _, item := range feed.Items {
		date := ""
		if item.PublishedParsed != nil {
			date = item.PublishedParsed.UTC().Format("2006-01-02")
		}
		if date == "" {
			continue
		}
		news = append(news, models.CompanyNews{
			Ticker:   ticker,
			Date:     date,
			Headline: item.Title,
			Summary:  item.Description,
			Source:   "Yahoo Finance",
			URL:      item.Link,
		})
	}
	return news, nil
}

// GetMarketCap scrapes the market-cap streamer field off the quote page.
// Never cached.
func (h *Handler) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error) {
	u := fmt.Sprintf("%s/%s", h.quoteURL, url.PathEscape(ticker))
	body, err := h.client.Get(ctx, u, h.headers())
	if err != nil {
		return 0, provider.Fetchf(provider.Yahoo, "quote page", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return 0, provider.Fetchf(provider.Yahoo, "quote page", err)
	}

	sel := doc.Find(`fin-streamer[data-field="marketCap"]`).First()
	raw, ok := sel.Attr("data-value")
	if !ok || raw == "" {
		return 0, provider.Fetchf(provider.Yahoo, "quote page",
			fmt.Errorf("no market cap for %s", ticker))
	}
	value, err := parseAbbreviated(raw)
	if err != nil {
		return 0, provider.Fetchf(provider.Yahoo, "quote page", err)
	}
	return value, nil
}
