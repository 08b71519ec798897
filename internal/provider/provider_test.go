package provider

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/finbridge/finbridge/pkg/models"
)

// stubHandler is a scriptable Handler for registry and dispatcher tests.
// Zero value answers every operation successfully with canned data; set fail
// to make every operation error.
type stubHandler struct {
	name  string
	fail  bool
	calls atomic.Int32

	prices    []models.Price
	marketCap float64
}

var errStub = errors.New("stub failure")

func (s *stubHandler) Name() string { return s.name }

func (s *stubHandler) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, Fetchf(s.name, "prices", errStub)
	}
	return s.prices, nil
}

func (s *stubHandler) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, Fetchf(s.name, "metrics", errStub)
	}
	return []models.FinancialMetrics{{Ticker: ticker, ReportPeriod: endDate, Period: period}}, nil
}

func (s *stubHandler) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, Fetchf(s.name, "line-items", errStub)
	}
	out := make([]models.LineItem, 0, len(lineItems))
	for _, name := range lineItems {
		out = append(out, models.LineItem{Ticker: ticker, LineItem: name, ReportPeriod: endDate, Period: period})
	}
	return out, nil
}

func (s *stubHandler) GetInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.InsiderTrade, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, Fetchf(s.name, "insider-trades", errStub)
	}
	return []models.InsiderTrade{{Ticker: ticker, FilingDate: endDate}}, nil
}

func (s *stubHandler) GetCompanyNews(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.CompanyNews, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, Fetchf(s.name, "news", errStub)
	}
	return []models.CompanyNews{{Ticker: ticker, Date: endDate, URL: "https://example.com/1"}}, nil
}

func (s *stubHandler) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error) {
	s.calls.Add(1)
	if s.fail {
		return 0, Fetchf(s.name, "market-cap", errStub)
	}
	return s.marketCap, nil
}
