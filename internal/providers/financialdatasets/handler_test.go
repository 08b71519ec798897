package financialdatasets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/finbridge/finbridge/internal/cache"
)

func newTestHandler(t *testing.T, apiKey string, mux *http.ServeMux) (*Handler, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	h, err := New(apiKey, cache.NewStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.SetBaseURL(srv.URL)
	return h, srv
}

func pricesPayload(days ...string) map[string]any {
	rows := make([]map[string]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, map[string]any{
			"time": d + "T00:00:00Z", "open": 184.0, "high": 186.0,
			"low": 183.0, "close": 185.0, "volume": 1000.0,
		})
	}
	return map[string]any{"prices": rows}
}

func TestGetPricesIncrementalCache(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/prices/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		if q.Get("ticker") != "AAPL" || q.Get("interval") != "day" || q.Get("interval_multiplier") != "1" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		var payload map[string]any
		if hits.Load() == 1 {
			payload = pricesPayload("2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
		} else {
			payload = pricesPayload("2024-01-08", "2024-01-09", "2024-01-10")
		}
		json.NewEncoder(w).Encode(payload)
	})
	h, _ := newTestHandler(t, "", mux)
	ctx := context.Background()

	// Cold window fetches once.
	got, err := h.GetPrices(ctx, "AAPL", "2024-01-01", "2024-01-05")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(got) != 4 || hits.Load() != 1 {
		t.Fatalf("cold read: %d bars after %d fetches", len(got), hits.Load())
	}

	// The same window is a pure cache hit.
	if _, err := h.GetPrices(ctx, "AAPL", "2024-01-01", "2024-01-05"); err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("warm read hit the network, %d fetches", hits.Load())
	}

	// A wider window overlapping the cached days is also served from cache:
	// non-empty overlap counts as a hit even without full coverage.
	got, err = h.GetPrices(ctx, "AAPL", "2024-01-01", "2024-01-10")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("overlapping window refetched, %d fetches", hits.Load())
	}
	if len(got) != 4 {
		t.Fatalf("expected the 4 cached bars, got %d", len(got))
	}

	// A disjoint later window refetches and merges.
	got, err = h.GetPrices(ctx, "AAPL", "2024-01-08", "2024-01-10")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("disjoint window should fetch, %d fetches", hits.Load())
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 new bars, got %d", len(got))
	}

	// The union is now cached, ascending.
	all, err := h.GetPrices(ctx, "AAPL", "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(all) != 7 || hits.Load() != 2 {
		t.Fatalf("expected merged 7 bars without refetch, got %d bars after %d fetches", len(all), hits.Load())
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Time >= all[i].Time {
			t.Fatalf("bars not ascending at %d", i)
		}
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var sawKey string
	mux := http.NewServeMux()
	mux.HandleFunc("/prices/", func(w http.ResponseWriter, r *http.Request) {
		sawKey = r.Header.Get("X-API-KEY")
		json.NewEncoder(w).Encode(pricesPayload("2024-01-02"))
	})
	h, _ := newTestHandler(t, "secret-key", mux)

	if _, err := h.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-05"); err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if sawKey != "secret-key" {
		t.Errorf("expected X-API-KEY header, got %q", sawKey)
	}
}

func TestGetFinancialMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/financial-metrics/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("report_period_lte"); got != "2024-06-30" {
			t.Errorf("report_period_lte = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"financial_metrics": []map[string]any{
				{"report_period": "2024-03-31", "period": "ttm", "market_cap": 2.8e12, "price_to_earnings_ratio": 28.5},
				{"report_period": "2023-12-31", "period": "ttm", "market_cap": 2.9e12},
			},
		})
	})
	h, _ := newTestHandler(t, "", mux)

	rows, err := h.GetFinancialMetrics(context.Background(), "AAPL", "2024-06-30", "ttm", 10)
	if err != nil {
		t.Fatalf("GetFinancialMetrics: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ReportPeriod != "2024-03-31" {
		t.Errorf("expected most recent first, got %s", rows[0].ReportPeriod)
	}
	if rows[0].Ticker != "AAPL" {
		t.Errorf("ticker not stamped, got %q", rows[0].Ticker)
	}
	if rows[0].PriceToEarningsRatio == nil || *rows[0].PriceToEarningsRatio != 28.5 {
		t.Error("P/E not unmarshaled")
	}
	if rows[1].PriceToEarningsRatio != nil {
		t.Error("absent metric must stay nil")
	}
}

func TestSearchLineItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/financials/search/line-items", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if tickers, _ := req["tickers"].([]any); len(tickers) != 1 || tickers[0] != "AAPL" {
			t.Errorf("unexpected tickers %v", req["tickers"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"search_results": []map[string]any{
				{
					"report_period": "2023-12-31", "period": "annual", "currency": "USD",
					"net_income": 97.0e9, "total_assets": 352.0e9,
				},
			},
		})
	})
	h, _ := newTestHandler(t, "", mux)

	items, err := h.SearchLineItems(context.Background(), "AAPL",
		[]string{"net_income", "total_assets", "unknown_item"}, "2024-06-30", "annual", 10)
	if err != nil {
		t.Fatalf("SearchLineItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (unknown skipped), got %d", len(items))
	}
	for _, li := range items {
		if li.ReportPeriod != "2023-12-31" || li.Currency != "USD" {
			t.Errorf("row fields not carried: %+v", li)
		}
		if li.Value == nil {
			t.Errorf("value missing for %s", li.LineItem)
		}
	}
}

func TestGetInsiderTradesWindow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/insider-trades/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("filing_date_lte") != "2024-04-30" || q.Get("filing_date_gte") != "2024-04-01" {
			t.Errorf("window not forwarded: %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"insider_trades": []map[string]any{
				{"filing_date": "2024-04-10", "transaction_date": "2024-04-08", "insider_name": "A", "transaction_type": "S", "shares": 100.0},
				{"filing_date": "2024-04-20", "insider_name": "B", "transaction_type": "P", "shares": 50.0},
			},
		})
	})
	h, _ := newTestHandler(t, "", mux)

	trades, err := h.GetInsiderTrades(context.Background(), "AAPL", "2024-04-30", "2024-04-01", 10)
	if err != nil {
		t.Fatalf("GetInsiderTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].InsiderName != "B" {
		t.Errorf("expected most recent first (filing-date fallback), got %q", trades[0].InsiderName)
	}
}

func TestGetMarketCapFromMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/financial-metrics/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"financial_metrics": []map[string]any{
				{"report_period": "2024-03-31", "period": "ttm", "market_cap": 2.8e12},
			},
		})
	})
	h, _ := newTestHandler(t, "", mux)

	value, err := h.GetMarketCap(context.Background(), "AAPL", "2024-06-30")
	if err != nil {
		t.Fatalf("GetMarketCap: %v", err)
	}
	if value != 2.8e12 {
		t.Errorf("market cap = %v", value)
	}
}

func TestGetMarketCapAbsentIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/financial-metrics/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"financial_metrics": []map[string]any{}})
	})
	h, _ := newTestHandler(t, "", mux)

	if _, err := h.GetMarketCap(context.Background(), "AAPL", "2024-06-30"); err == nil {
		t.Fatal("expected error when no metric row carries a market cap")
	}
}

func TestUpstreamErrorSurfacesAsFetchError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/prices/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	h, _ := newTestHandler(t, "", mux)

	if _, err := h.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-05"); err == nil {
		t.Fatal("expected error from 502 response")
	}
}
