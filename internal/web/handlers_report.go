package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/salesdash/internal/report"
)

// serveReport parses the filter, builds one view and writes it as JSON.
func serveReport[V any](w http.ResponseWriter, r *http.Request, build func(context.Context, report.Filter) (V, error)) {
	f, err := report.ParseFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	v, err := build(r.Context(), f)
	if err != nil {
		respondError(w, r, err, reportStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleOverviewData accepts year, month and quarter.
func (s *Server) handleOverviewData(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, s.reports.Overview)
}

// handleMarketData accepts market_id.
func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, s.reports.Market)
}

// handleCustomerData accepts segment_id.
func (s *Server) handleCustomerData(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, s.reports.Customer)
}

// handleProductData accepts category_id, subcategory_id and product_id.
func (s *Server) handleProductData(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, s.reports.Product)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	v, err := s.reports.Filters(r.Context())
	if err != nil {
		respondError(w, r, err, reportStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
