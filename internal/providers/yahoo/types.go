package yahoo

import (
	"fmt"
	"strconv"
	"strings"
)

// chartResponse is the v8 chart API envelope. Quote arrays are pointer
// slices: Yahoo emits JSON nulls for sessions without a bar.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamps []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// parseAbbreviated parses a numeric string that may carry a magnitude suffix
// (3.21T, 150.4B, 982M) as the quote page sometimes renders instead of the
// raw data-value.
func parseAbbreviated(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	factor := 1.0
	switch s[len(s)-1] {
	case 'T':
		factor, s = 1e12, s[:len(s)-1]
	case 'B':
		factor, s = 1e9, s[:len(s)-1]
	case 'M':
		factor, s = 1e6, s[:len(s)-1]
	case 'K':
		factor, s = 1e3, s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parse market cap %q: %w", s, err)
	}
	return v * factor, nil
}
