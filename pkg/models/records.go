// Package models defines the core data structures used throughout finbridge.
//
// All records are flat, immutable value objects keyed by ticker plus a
// temporal field. Temporal keys are YYYY-MM-DD strings: lexicographic order
// equals chronological order, which keeps range filtering and sorting a plain
// string comparison regardless of which provider produced the record.
package models

// Price is one daily OHLCV bar for a ticker.
type Price struct {
	Ticker string  `json:"ticker"`
	Time   string  `json:"time"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// DedupKey identifies the same fact across refreshes: one bar per trading day.
func (p Price) DedupKey() string { return p.Ticker + "|" + p.Time }

// TemporalKey returns the date the record is keyed on.
func (p Price) TemporalKey() string { return p.Time }

// FinancialMetrics is one reporting period's worth of valuation and
// profitability ratios. Ratio fields are pointers: nil means the provider did
// not report that metric, which is distinct from a reported zero.
type FinancialMetrics struct {
	Ticker       string `json:"ticker"`
	ReportPeriod string `json:"report_period"` // YYYY-MM-DD
	Period       string `json:"period"`        // "ttm", "annual", "quarterly"

	MarketCap               *float64 `json:"market_cap"`
	EnterpriseValue         *float64 `json:"enterprise_value"`
	PriceToEarningsRatio    *float64 `json:"price_to_earnings_ratio"`
	PriceToBookRatio        *float64 `json:"price_to_book_ratio"`
	PriceToSalesRatio       *float64 `json:"price_to_sales_ratio"`
	EVToRevenue             *float64 `json:"enterprise_value_to_revenue_ratio"`
	EVToEBITDA              *float64 `json:"enterprise_value_to_ebitda_ratio"`
	GrossMargin             *float64 `json:"gross_margin"`
	OperatingMargin         *float64 `json:"operating_margin"`
	NetMargin               *float64 `json:"net_margin"`
	ReturnOnEquity          *float64 `json:"return_on_equity"`
	ReturnOnAssets          *float64 `json:"return_on_assets"`
	ReturnOnInvestedCapital *float64 `json:"return_on_invested_capital"`
	CurrentRatio            *float64 `json:"current_ratio"`
	QuickRatio              *float64 `json:"quick_ratio"`
	DebtToEquity            *float64 `json:"debt_to_equity"`
	InterestCoverage        *float64 `json:"interest_coverage"`
	RevenueGrowth           *float64 `json:"revenue_growth"`
	EarningsGrowth          *float64 `json:"earnings_growth"`
	PayoutRatio             *float64 `json:"payout_ratio"`
	DividendYield           *float64 `json:"dividend_yield"`
	EarningsPerShare        *float64 `json:"earnings_per_share"`
	FreeCashFlowYield       *float64 `json:"free_cash_flow_yield"`
}

func (m FinancialMetrics) DedupKey() string {
	return m.Ticker + "|" + m.ReportPeriod + "|" + m.Period
}

func (m FinancialMetrics) TemporalKey() string { return m.ReportPeriod }

// LineItem is one named financial-statement value for one reporting period.
// Multiple items share a period, so the name is part of the identity.
type LineItem struct {
	Ticker       string   `json:"ticker"`
	LineItem     string   `json:"line_item"` // canonical name, e.g. "net_income"
	Value        *float64 `json:"value"`
	ReportPeriod string   `json:"report_period"` // YYYY-MM-DD
	Period       string   `json:"period"`
	Currency     string   `json:"currency,omitempty"`
}

func (l LineItem) DedupKey() string {
	return l.Ticker + "|" + l.ReportPeriod + "|" + l.LineItem
}

func (l LineItem) TemporalKey() string { return l.ReportPeriod }

// InsiderTrade is one reported insider transaction. TransactionDate may be
// empty in some filings; the temporal key falls back to FilingDate.
type InsiderTrade struct {
	Ticker          string  `json:"ticker"`
	FilingDate      string  `json:"filing_date"`      // YYYY-MM-DD
	TransactionDate string  `json:"transaction_date"` // YYYY-MM-DD, may be ""
	InsiderName     string  `json:"insider_name"`
	Title           string  `json:"title"`
	TransactionType string  `json:"transaction_type"`
	Shares          float64 `json:"shares"`
	Price           float64 `json:"price"`
	Value           float64 `json:"value"`
}

func (t InsiderTrade) DedupKey() string {
	return t.Ticker + "|" + t.TemporalKey() + "|" + t.InsiderName + "|" + t.TransactionType
}

// TemporalKey prefers the transaction date and falls back to the filing date.
func (t InsiderTrade) TemporalKey() string {
	if t.TransactionDate != "" {
		return t.TransactionDate
	}
	return t.FilingDate
}

// CompanyNews is one news article about a ticker. Several articles may share
// a date, so the URL participates in the identity.
type CompanyNews struct {
	Ticker   string `json:"ticker"`
	Date     string `json:"date"` // YYYY-MM-DD
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

func (n CompanyNews) DedupKey() string { return n.Ticker + "|" + n.Date + "|" + n.URL }

func (n CompanyNews) TemporalKey() string { return n.Date }

// Float64 returns a pointer to v. Convenience for building metric records.
func Float64(v float64) *float64 { return &v }
