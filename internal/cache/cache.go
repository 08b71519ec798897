// Package cache implements the per-ticker incremental record cache shared by
// all provider handlers.
//
// Each (entity kind, ticker) pair holds one merged, ordered collection.
// Merging deduplicates on each record's DedupKey: an incoming record with a
// key already present replaces the old record, so providers can refresh stale
// fields without creating duplicates. There is no TTL: financial history for
// past dates never changes, so cached rows stay valid indefinitely; only the
// current-period "ttm" metrics row can go stale, which callers accept.
package cache

import (
	"sort"
	"sync"

	"github.com/finbridge/finbridge/pkg/models"
)

// Kind names one cached entity family.
type Kind string

const (
	KindPrices           Kind = "prices"
	KindFinancialMetrics Kind = "financial_metrics"
	KindLineItems        Kind = "line_items"
	KindInsiderTrades    Kind = "insider_trades"
	KindCompanyNews      Kind = "company_news"
)

// record is the merge contract every cached type satisfies.
type record interface {
	DedupKey() string
	TemporalKey() string
}

// Store holds the per-(kind, ticker) collections. Safe for concurrent use.
// The store only guards its maps: collapsing duplicate concurrent fetches for
// the same key is the read path's job, not the store's.
type Store struct {
	mu sync.Mutex

	prices    map[string][]models.Price
	metrics   map[string][]models.FinancialMetrics
	lineItems map[string][]models.LineItem
	insiders  map[string][]models.InsiderTrade
	news      map[string][]models.CompanyNews
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{
		prices:    make(map[string][]models.Price),
		metrics:   make(map[string][]models.FinancialMetrics),
		lineItems: make(map[string][]models.LineItem),
		insiders:  make(map[string][]models.InsiderTrade),
		news:      make(map[string][]models.CompanyNews),
	}
}

// Clear drops every cached collection. Used by tests and runtime resets.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = make(map[string][]models.Price)
	s.metrics = make(map[string][]models.FinancialMetrics)
	s.lineItems = make(map[string][]models.LineItem)
	s.insiders = make(map[string][]models.InsiderTrade)
	s.news = make(map[string][]models.CompanyNews)
}

// merge folds incoming into existing: same dedup key replaces in place, new
// keys append. The caller re-sorts afterwards. Calling merge twice with the
// same batch leaves the collection unchanged.
func merge[T record](existing, incoming []T) []T {
	idx := make(map[string]int, len(existing))
	for i, r := range existing {
		idx[r.DedupKey()] = i
	}
	out := existing
	for _, r := range incoming {
		if i, ok := idx[r.DedupKey()]; ok {
			out[i] = r
			continue
		}
		idx[r.DedupKey()] = len(out)
		out = append(out, r)
	}
	return out
}

func sortAscending[T record](rs []T) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].TemporalKey() < rs[j].TemporalKey() })
}

func sortDescending[T record](rs []T) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].TemporalKey() > rs[j].TemporalKey() })
}

func copyOf[T any](rs []T) []T {
	out := make([]T, len(rs))
	copy(out, rs)
	return out
}

// Prices returns the full cached price collection for a ticker, ascending by
// date. Empty slice when nothing is cached; callers cannot distinguish a miss
// from an empty collection, by contract.
func (s *Store) Prices(ticker string) []models.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.prices[ticker])
}

// SetPrices merges the batch into the ticker's collection and restores
// ascending date order.
func (s *Store) SetPrices(ticker string, batch []models.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := merge(s.prices[ticker], batch)
	sortAscending(merged)
	s.prices[ticker] = merged
}

// FinancialMetrics returns the cached metrics for a ticker, most recent
// report period first.
func (s *Store) FinancialMetrics(ticker string) []models.FinancialMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.metrics[ticker])
}

func (s *Store) SetFinancialMetrics(ticker string, batch []models.FinancialMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := merge(s.metrics[ticker], batch)
	sortDescending(merged)
	s.metrics[ticker] = merged
}

// LineItems returns the cached line items for a ticker, most recent first.
func (s *Store) LineItems(ticker string) []models.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.lineItems[ticker])
}

func (s *Store) SetLineItems(ticker string, batch []models.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := merge(s.lineItems[ticker], batch)
	sortDescending(merged)
	s.lineItems[ticker] = merged
}

// InsiderTrades returns the cached insider trades for a ticker, most recent
// transaction (or filing) first.
func (s *Store) InsiderTrades(ticker string) []models.InsiderTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.insiders[ticker])
}

func (s *Store) SetInsiderTrades(ticker string, batch []models.InsiderTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := merge(s.insiders[ticker], batch)
	sortDescending(merged)
	s.insiders[ticker] = merged
}

// CompanyNews returns the cached news for a ticker, most recent first.
func (s *Store) CompanyNews(ticker string) []models.CompanyNews {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.news[ticker])
}

func (s *Store) SetCompanyNews(ticker string, batch []models.CompanyNews) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := merge(s.news[ticker], batch)
	sortDescending(merged)
	s.news[ticker] = merged
}
