package server

import (
	"net/http"

	"github.com/bobmcallan/bolsa/internal/models"
)

// handleRate returns the rate in force on date: the exact publication or the
// closest earlier one.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	date, ok := DateParam(w, "date", raw)
	if !ok {
		return
	}

	rate, err := s.app.FXService.RateFor(r.Context(), date)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requested": date,
		"exact":     rate.Date == date,
		"rate":      rate,
	})
}

// handleRates lists published rates over ?from=&to=.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to, ok := RangeParams(w, r)
	if !ok {
		return
	}

	rates, err := s.app.FXService.Rates(r.Context(), from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if len(rates) == 0 {
		from, to = models.OrderRange(from, to)
		WriteNoDataRange(w, from, to)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"rates": rates})
}
