package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/bolsa/internal/models"
	"github.com/bobmcallan/bolsa/internal/services/history"
)

// --- Market handlers ---

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	date, ok := DateParam(w, "date", raw)
	if !ok {
		return
	}

	day, err := s.app.MarketService.Snapshot(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date.String()).Msg("Snapshot failed")
		WriteServiceError(w, err)
		return
	}
	if day.Empty() {
		WriteNoData(w, date)
		return
	}

	WriteJSON(w, http.StatusOK, day)
}

func (s *Server) handleMarketLatest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var anchor models.Date
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		d, ok := DateParam(w, "anchor", raw)
		if !ok {
			return
		}
		anchor = d
	}

	latest, err := s.app.MarketService.LatestSnapshot(r.Context(), anchor)
	if err != nil {
		s.logger.Error().Err(err).Str("anchor", anchor.String()).Msg("Latest snapshot failed")
		WriteServiceError(w, err)
		return
	}
	if !latest.Found {
		WriteJSON(w, http.StatusNotFound, latest)
		return
	}

	WriteJSON(w, http.StatusOK, latest)
}

// handleSymbolHistory serves /api/history?symbol=&from=&to=[&usd=true].
func (s *Server) handleSymbolHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required", "invalid_input")
		return
	}
	from, to, ok := RangeParams(w, r)
	if !ok {
		return
	}

	h, err := s.app.MarketService.SymbolHistory(r.Context(), symbol, from, to)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Symbol history failed")
		WriteServiceError(w, err)
		return
	}
	if h.Series == nil || h.Series.Len() == 0 {
		WriteNoDataRange(w, h.From, h.To)
		return
	}

	if r.URL.Query().Get("usd") != "true" {
		WriteJSON(w, http.StatusOK, h)
		return
	}

	points, err := s.app.FXService.DollarComparison(r.Context(), h.Series.Ascending())
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Dollar comparison failed")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": h,
		"dollar":  points,
	})
}

func (s *Server) handleIndexHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to, ok := RangeParams(w, r)
	if !ok {
		return
	}

	h, err := s.app.MarketService.IndexHistory(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("Index history failed")
		WriteServiceError(w, err)
		return
	}
	if len(h.Points) == 0 {
		WriteNoDataRange(w, h.From, h.To)
		return
	}

	WriteJSON(w, http.StatusOK, h)
}

// handleIndexChart renders the adjusted index series as a PNG.
func (s *Server) handleIndexChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to, ok := RangeParams(w, r)
	if !ok {
		return
	}

	h, err := s.app.MarketService.IndexHistory(r.Context(), from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if len(h.Points) < 2 {
		WriteNoDataRange(w, h.From, h.To)
		return
	}

	png, err := history.RenderIndexChart(h.Points)
	if err != nil {
		s.logger.Error().Err(err).Msg("Index chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// --- Cache and store handlers ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.app.MarketService.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Stats failed")
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// handleCache reports cache state (GET) or clears it (DELETE ?scope=query|all).
func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stats, err := s.app.MarketService.Stats(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"record_cache_entries":  stats.RecordCacheEntries,
			"record_cache_capacity": stats.RecordCacheCapacity,
			"query_cache":           stats.QueryCache,
		})
	case http.MethodDelete:
		scope := r.URL.Query().Get("scope")
		if scope == "" {
			scope = "all"
		}
		if scope != "query" && scope != "all" {
			WriteErrorWithCode(w, http.StatusBadRequest, "scope must be query or all", "invalid_input")
			return
		}
		s.app.MarketService.ClearCaches(scope == "query")
		WriteJSON(w, http.StatusOK, map[string]string{"cleared": scope})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}
