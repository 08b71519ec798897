package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	defaultName := ""
	if name, err := s.reg.DefaultName(); err == nil {
		defaultName = name
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":           "ok",
			"default_provider": defaultName,
			"time":             time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	defaultName, err := s.reg.DefaultName()
	if err != nil {
		defaultName = ""
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"providers": s.reg.Names(),
			"default":   defaultName,
		},
	})
}

// GET /api/v1/prices/{ticker}?start_date=&end_date=
// Multiple tickers may be given comma-separated; the response is then a map
// from ticker to bars.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	if ticker == "" || startDate == "" || endDate == "" {
		writeError(w, http.StatusBadRequest, "ticker, start_date and end_date are required")
		return
	}

	if strings.Contains(ticker, ",") {
		tickers := strings.Split(ticker, ",")
		writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data:    s.disp.GetPricesMulti(r.Context(), tickers, startDate, endDate),
		})
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.disp.GetPrices(r.Context(), ticker, startDate, endDate),
	})
}

// GET /api/v1/financial-metrics/{ticker}?end_date=&period=&limit=
func (s *Server) handleFinancialMetrics(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	endDate := r.URL.Query().Get("end_date")
	if ticker == "" || endDate == "" {
		writeError(w, http.StatusBadRequest, "ticker and end_date are required")
		return
	}
	period := queryDefault(r, "period", "ttm")
	limit := queryInt(r, "limit", 10)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.disp.GetFinancialMetrics(r.Context(), ticker, endDate, period, limit),
	})
}

// LineItemsRequest is the body for POST /api/v1/line-items/{ticker}.
type LineItemsRequest struct {
	LineItems []string `json:"line_items"`
	EndDate   string   `json:"end_date"`
	Period    string   `json:"period,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

func (s *Server) handleLineItems(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	var req LineItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ticker == "" || len(req.LineItems) == 0 || req.EndDate == "" {
		writeError(w, http.StatusBadRequest, "ticker, line_items and end_date are required")
		return
	}
	if req.Period == "" {
		req.Period = "ttm"
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.disp.SearchLineItems(r.Context(), ticker, req.LineItems, req.EndDate, req.Period, req.Limit),
	})
}

// GET /api/v1/insider-trades/{ticker}?end_date=&start_date=&limit=
func (s *Server) handleInsiderTrades(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	endDate := r.URL.Query().Get("end_date")
	if ticker == "" || endDate == "" {
		writeError(w, http.StatusBadRequest, "ticker and end_date are required")
		return
	}
	startDate := r.URL.Query().Get("start_date")
	limit := queryInt(r, "limit", 1000)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.disp.GetInsiderTrades(r.Context(), ticker, endDate, startDate, limit),
	})
}

// GET /api/v1/news/{ticker}?end_date=&start_date=&limit=
func (s *Server) handleCompanyNews(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	endDate := r.URL.Query().Get("end_date")
	if ticker == "" || endDate == "" {
		writeError(w, http.StatusBadRequest, "ticker and end_date are required")
		return
	}
	startDate := r.URL.Query().Get("start_date")
	limit := queryInt(r, "limit", 1000)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.disp.GetCompanyNews(r.Context(), ticker, endDate, startDate, limit),
	})
}

// GET /api/v1/market-cap/{ticker}?end_date=
func (s *Server) handleMarketCap(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	endDate := queryDefault(r, "end_date", time.Now().UTC().Format("2006-01-02"))

	value, ok := s.disp.GetMarketCap(r.Context(), ticker, endDate)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"ticker":     ticker,
			"market_cap": value,
			"found":      ok,
		},
	})
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
