package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/provider"
	"github.com/finbridge/finbridge/pkg/models"
)

// fakeHandler answers every operation with canned data.
type fakeHandler struct {
	name string
	fail bool
}

var errFake = errors.New("fake failure")

func (f *fakeHandler) Name() string { return f.name }

func (f *fakeHandler) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	if f.fail {
		return nil, errFake
	}
	return []models.Price{{Ticker: ticker, Time: startDate, Close: 185}}, nil
}

func (f *fakeHandler) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	if f.fail {
		return nil, errFake
	}
	return []models.FinancialMetrics{{Ticker: ticker, ReportPeriod: endDate, Period: period}}, nil
}

func (f *fakeHandler) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	if f.fail {
		return nil, errFake
	}
	out := make([]models.LineItem, 0, len(lineItems))
	for _, name := range lineItems {
		out = append(out, models.LineItem{Ticker: ticker, LineItem: name, ReportPeriod: endDate, Period: period})
	}
	return out, nil
}

func (f *fakeHandler) GetInsiderTrades(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.InsiderTrade, error) {
	if f.fail {
		return nil, errFake
	}
	return []models.InsiderTrade{{Ticker: ticker, FilingDate: endDate}}, nil
}

func (f *fakeHandler) GetCompanyNews(ctx context.Context, ticker, endDate, startDate string, limit int) ([]models.CompanyNews, error) {
	if f.fail {
		return nil, errFake
	}
	return []models.CompanyNews{{Ticker: ticker, Date: endDate, URL: "https://x/1"}}, nil
}

func (f *fakeHandler) GetMarketCap(ctx context.Context, ticker, endDate string) (float64, error) {
	if f.fail {
		return 0, errFake
	}
	return 3e12, nil
}

func newTestServer(t *testing.T, handlers ...*fakeHandler) *Server {
	t.Helper()
	reg := provider.NewRegistry("")
	for i, h := range handlers {
		reg.Register(h.name, i == 0, func() (provider.Handler, error) { return h, nil })
	}
	return NewServer(&config.Config{}, reg)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha"})
	rec, resp := doRequest(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health check failed: %d %+v", rec.Code, resp)
	}
}

func TestPricesEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha"})

	rec, resp := doRequest(t, srv, http.MethodGet,
		"/api/v1/prices/AAPL?start_date=2024-01-01&end_date=2024-01-31", "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}

	// Missing window is a 400.
	rec, resp = doRequest(t, srv, http.MethodGet, "/api/v1/prices/AAPL", "")
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("expected 400 for missing dates, got %d", rec.Code)
	}
}

func TestPricesMultiTicker(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha"})

	rec, resp := doRequest(t, srv, http.MethodGet,
		"/api/v1/prices/AAPL,MSFT?start_date=2024-01-01&end_date=2024-01-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected a per-ticker map, got %T", resp.Data)
	}
	if _, ok := data["AAPL"]; !ok {
		t.Error("missing AAPL entry")
	}
	if _, ok := data["MSFT"]; !ok {
		t.Error("missing MSFT entry")
	}
}

func TestLineItemsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha"})

	body := `{"line_items":["net_income"],"end_date":"2024-06-30"}`
	rec, resp := doRequest(t, srv, http.MethodPost, "/api/v1/line-items/AAPL", body)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}

	rec, _ = doRequest(t, srv, http.MethodPost, "/api/v1/line-items/AAPL", `{"end_date":"2024-06-30"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without line_items, got %d", rec.Code)
	}
}

func TestMarketCapEndpointReportsFound(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha"})

	_, resp := doRequest(t, srv, http.MethodGet, "/api/v1/market-cap/AAPL?end_date=2024-06-30", "")
	data := resp.Data.(map[string]any)
	if data["found"] != true {
		t.Errorf("expected found=true, got %v", data["found"])
	}
	if data["market_cap"].(float64) != 3e12 {
		t.Errorf("market_cap = %v", data["market_cap"])
	}
}

// Every provider failing still yields a 200 with an empty payload: the data
// layer degrades, it does not error.
func TestFailureDegradesToEmpty(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha", fail: true}, &fakeHandler{name: "beta", fail: true})

	rec, resp := doRequest(t, srv, http.MethodGet,
		"/api/v1/prices/AAPL?start_date=2024-01-01&end_date=2024-01-31", "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected graceful empty response, got %d %+v", rec.Code, resp)
	}

	_, resp = doRequest(t, srv, http.MethodGet, "/api/v1/market-cap/AAPL", "")
	data := resp.Data.(map[string]any)
	if data["found"] != false {
		t.Errorf("expected found=false, got %v", data["found"])
	}
}

func TestFailoverBetweenProviders(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha", fail: true}, &fakeHandler{name: "beta"})

	_, resp := doRequest(t, srv, http.MethodGet,
		"/api/v1/news/AAPL?end_date=2024-03-15", "")
	if !resp.Success {
		t.Fatalf("expected fallback to answer: %+v", resp)
	}
	articles, ok := resp.Data.([]any)
	if !ok || len(articles) != 1 {
		t.Fatalf("expected one article from the fallback, got %+v", resp.Data)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeHandler{name: "alpha"}, &fakeHandler{name: "beta"})

	_, resp := doRequest(t, srv, http.MethodGet, "/api/v1/providers", "")
	data := resp.Data.(map[string]any)
	if data["default"] != "alpha" {
		t.Errorf("default = %v", data["default"])
	}
	names := data["providers"].([]any)
	if len(names) != 2 {
		t.Errorf("providers = %v", names)
	}
}
