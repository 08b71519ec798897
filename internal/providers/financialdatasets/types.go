package financialdatasets

import "github.com/finbridge/finbridge/pkg/models"

// Wire shapes for the financialdatasets.ai endpoints. Metric, insider-trade
// and news payloads match the canonical records field for field, so they
// unmarshal straight into pkg/models types.

type pricesResponse struct {
	Prices []priceRow `json:"prices"`
}

// priceRow keeps the raw timestamp string so the handler can truncate
// RFC 3339 values to a plain date.
type priceRow struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type metricsResponse struct {
	FinancialMetrics []models.FinancialMetrics `json:"financial_metrics"`
}

// lineItemSearchResponse rows carry the requested line items as dynamic
// top-level fields next to report_period/period/currency, hence the generic
// map.
type lineItemSearchResponse struct {
	SearchResults []map[string]any `json:"search_results"`
}

type insiderTradesResponse struct {
	InsiderTrades []models.InsiderTrade `json:"insider_trades"`
}

type newsResponse struct {
	News []models.CompanyNews `json:"news"`
}
