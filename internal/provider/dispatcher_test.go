package provider

import (
	"context"
	"testing"

	"github.com/finbridge/finbridge/pkg/models"
)

func twoProviderRegistry(primary, fallback *stubHandler) *Registry {
	reg := NewRegistry("")
	reg.Register(primary.name, true, func() (Handler, error) { return primary, nil })
	reg.Register(fallback.name, false, func() (Handler, error) { return fallback, nil })
	reg.SetKeylessFallback(fallback.name)
	return reg
}

func TestDispatcherUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubHandler{name: "alpha", prices: []models.Price{{Ticker: "AAPL", Time: "2024-01-02"}}}
	fallback := &stubHandler{name: "beta"}
	d := NewDispatcher(twoProviderRegistry(primary, fallback))

	got := d.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31")
	if len(got) != 1 {
		t.Fatalf("expected primary's data, got %d bars", len(got))
	}
	if fallback.calls.Load() != 0 {
		t.Errorf("fallback called %d times although primary succeeded", fallback.calls.Load())
	}
}

func TestDispatcherFailsOverOnce(t *testing.T) {
	primary := &stubHandler{name: "alpha", fail: true}
	fallback := &stubHandler{name: "beta", prices: []models.Price{{Ticker: "AAPL", Time: "2024-01-02"}}}
	d := NewDispatcher(twoProviderRegistry(primary, fallback))

	got := d.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31")
	if len(got) != 1 {
		t.Fatalf("expected fallback's data, got %d bars", len(got))
	}
	if primary.calls.Load() != 1 || fallback.calls.Load() != 1 {
		t.Errorf("expected exactly one call each, got primary=%d fallback=%d", primary.calls.Load(), fallback.calls.Load())
	}
}

func TestDispatcherTotalFailureReturnsEmpty(t *testing.T) {
	primary := &stubHandler{name: "alpha", fail: true}
	fallback := &stubHandler{name: "beta", fail: true}
	d := NewDispatcher(twoProviderRegistry(primary, fallback))
	ctx := context.Background()

	if got := d.GetPrices(ctx, "AAPL", "2024-01-01", "2024-01-31"); got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty price slice, got %#v", got)
	}
	if got := d.GetFinancialMetrics(ctx, "AAPL", "2024-01-31", "ttm", 10); got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty metrics slice, got %#v", got)
	}
	if got := d.SearchLineItems(ctx, "AAPL", []string{"net_income"}, "2024-01-31", "ttm", 10); got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty line-item slice, got %#v", got)
	}
	if got := d.GetInsiderTrades(ctx, "AAPL", "2024-01-31", "", 10); got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty insider slice, got %#v", got)
	}
	if got := d.GetCompanyNews(ctx, "AAPL", "2024-01-31", "", 10); got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty news slice, got %#v", got)
	}
	if value, ok := d.GetMarketCap(ctx, "AAPL", "2024-01-31"); ok || value != 0 {
		t.Errorf("expected (0, false), got (%v, %v)", value, ok)
	}
}

func TestDispatcherSkipsUnconstructibleFallback(t *testing.T) {
	primary := &stubHandler{name: "alpha", fail: true}
	last := &stubHandler{name: "gamma", marketCap: 3e12}

	reg := NewRegistry("")
	reg.Register(primary.name, true, func() (Handler, error) { return primary, nil })
	reg.Register("beta", false, func() (Handler, error) {
		return nil, &ConfigError{Provider: "beta", Detail: "key missing"}
	})
	reg.Register(last.name, false, func() (Handler, error) { return last, nil })

	d := NewDispatcher(reg)
	value, ok := d.GetMarketCap(context.Background(), "AAPL", "2024-01-31")
	if !ok || value != 3e12 {
		t.Fatalf("expected the constructible fallback to answer, got (%v, %v)", value, ok)
	}
}

func TestDispatcherNoResolvableProvider(t *testing.T) {
	reg := NewRegistry("")
	reg.Register("alpha", false, func() (Handler, error) { return &stubHandler{name: "alpha"}, nil })
	d := NewDispatcher(reg)

	if got := d.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31"); len(got) != 0 {
		t.Errorf("expected empty result with no resolvable default, got %d", len(got))
	}
}

func TestGetPricesMulti(t *testing.T) {
	primary := &stubHandler{name: "alpha", prices: []models.Price{{Ticker: "X", Time: "2024-01-02"}}}
	fallback := &stubHandler{name: "beta"}
	d := NewDispatcher(twoProviderRegistry(primary, fallback))

	tickers := []string{"AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA"}
	got := d.GetPricesMulti(context.Background(), tickers, "2024-01-01", "2024-01-31")

	if len(got) != len(tickers) {
		t.Fatalf("expected an entry per ticker, got %d", len(got))
	}
	for _, ticker := range tickers {
		if _, ok := got[ticker]; !ok {
			t.Errorf("missing entry for %s", ticker)
		}
	}
}
