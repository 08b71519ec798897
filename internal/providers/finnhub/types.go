package finnhub

import "encoding/json"

// Wire shapes for the Finnhub REST endpoints this handler consumes.

// candleResponse is /stock/candle: parallel arrays indexed by bar.
type candleResponse struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Open       []float64 `json:"o"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Close      []float64 `json:"c"`
	Volume     []float64 `json:"v"`
}

// metricResponse is /stock/metric?metric=all. The metric map's value set
// varies by listing; absent keys mean "not reported".
type metricResponse struct {
	Metric map[string]float64 `json:"metric"`
}

// ratiosResponse is /stock/financial-ratios, used only to recover the most
// recent annual report period.
type ratiosResponse struct {
	Series struct {
		Annual map[string][]ratioPoint `json:"annual"`
	} `json:"series"`
}

type ratioPoint struct {
	Period string  `json:"period"`
	V      float64 `json:"v"`
}

// financialsResponse is /stock/financials?statement=all&freq=annual.
type financialsResponse struct {
	Financials []financialStatement `json:"financials"`
}

// financialStatement mixes the report year with an open-ended set of numeric
// statement fields in a single flat object, so it unmarshals itself.
type financialStatement struct {
	Year   int
	Fields map[string]float64
}

func (s *financialStatement) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Fields = make(map[string]float64, len(raw))
	for key, val := range raw {
		if key == "year" {
			if err := json.Unmarshal(val, &s.Year); err != nil {
				return err
			}
			continue
		}
		var f float64
		if err := json.Unmarshal(val, &f); err != nil {
			continue // non-numeric field such as "period"
		}
		s.Fields[key] = f
	}
	return nil
}

// insiderResponse is /stock/insider-transactions.
type insiderResponse struct {
	Data []insiderTransaction `json:"data"`
}

type insiderTransaction struct {
	Name             string  `json:"name"`
	OfficerTitle     string  `json:"officerTitle"`
	Share            float64 `json:"share"`
	FilingDate       string  `json:"filingDate"`
	TransactionDate  string  `json:"transactionDate"`
	TransactionCode  string  `json:"transactionCode"`
	TransactionPrice float64 `json:"transactionPrice"`
	Value            float64 `json:"value"`
}

// newsItem is one element of the /company-news array.
type newsItem struct {
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// profileResponse is /stock/profile2. MarketCapitalization is in millions.
type profileResponse struct {
	Name                 string  `json:"name"`
	MarketCapitalization float64 `json:"marketCapitalization"`
}
