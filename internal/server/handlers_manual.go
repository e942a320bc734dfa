package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/bolsa/internal/models"
)

// manualDayRequest is the POST body for /api/manual/{date}.
type manualDayRequest struct {
	Records []models.ManualRecordInput `json:"records"`
	Index   *struct {
		Value         float64 `json:"value"`
		PercentChange float64 `json:"percent_change"`
	} `json:"index,omitempty"`
}

// handleManualList lists manual dates, or one symbol's manual rows when
// ?symbol= is given (with optional from/to, defaulting to the full range).
func (s *Server) handleManualList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		dates, err := s.app.MarketService.ListManualDates(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("Listing manual dates failed")
			WriteServiceError(w, err)
			return
		}
		if dates == nil {
			dates = []models.Date{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"dates": dates})
		return
	}

	from, to := models.Date("19000101"), models.Date("29991231")
	if raw := r.URL.Query().Get("from"); raw != "" {
		d, ok := DateParam(w, "from", raw)
		if !ok {
			return
		}
		from = d
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		d, ok := DateParam(w, "to", raw)
		if !ok {
			return
		}
		to = d
	}

	records, err := s.app.MarketService.ManualSymbolRecords(r.Context(), symbol, from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if records == nil {
		records = []models.MarketRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  models.NormalizeSymbol(symbol),
		"records": records,
	})
}

// handleManualDay serves GET, POST and DELETE on /api/manual/{date}.
func (s *Server) handleManualDay(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}
	date, ok := DateParam(w, "date", raw)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		day, err := s.app.MarketService.GetManualDay(r.Context(), date)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if day.Empty() && day.Index == nil {
			WriteNoData(w, date)
			return
		}
		WriteJSON(w, http.StatusOK, day)

	case http.MethodPost:
		var req manualDayRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if len(req.Records) == 0 && req.Index == nil {
			WriteErrorWithCode(w, http.StatusBadRequest, "records or index required", "invalid_input")
			return
		}

		day := &models.Day{Date: date, Records: make([]models.MarketRecord, 0, len(req.Records))}
		for _, in := range req.Records {
			day.Records = append(day.Records, models.MarketRecord{
				Date:           date,
				Symbol:         in.Symbol,
				DisplayName:    in.Name,
				PreviousPrice:  in.PreviousPrice,
				CurrentPrice:   in.CurrentPrice,
				TradedQuantity: in.Quantity,
				TradedAmount:   in.Amount,
			})
		}
		if req.Index != nil {
			day.Index = &models.IndexRecord{Date: date, Value: req.Index.Value, PercentChange: req.Index.PercentChange}
		}

		saved, err := s.app.MarketService.SaveManualDay(r.Context(), day)
		if err != nil {
			WriteServiceError(w, err)
			return
		}

		resp := map[string]interface{}{"date": date, "records": saved.Records}
		if saved.Index != nil {
			resp["index"] = saved.Index
		}
		WriteJSON(w, http.StatusCreated, resp)

	case http.MethodDelete:
		n, err := s.app.MarketService.DeleteManualDay(r.Context(), date)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]int{"removed": n})
	}
}

func (s *Server) handleManualVerify(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	date, ok := DateParam(w, "date", raw)
	if !ok {
		return
	}

	v, err := s.app.MarketService.VerifyDate(r.Context(), date)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleManualRecordDelete(w http.ResponseWriter, r *http.Request, raw, symbol string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	date, ok := DateParam(w, "date", raw)
	if !ok {
		return
	}

	if err := s.app.MarketService.DeleteManualRecord(r.Context(), date, symbol); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
