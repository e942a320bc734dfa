package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/bolsa/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NoDataResponse answers a request for a date or range with nothing stored.
type NoDataResponse struct {
	Error string      `json:"error"`
	Date  models.Date `json:"date,omitempty"`
	From  models.Date `json:"from,omitempty"`
	To    models.Date `json:"to,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteNoData writes the 404 body echoing the requested date.
func WriteNoData(w http.ResponseWriter, date models.Date) {
	WriteJSON(w, http.StatusNotFound, NoDataResponse{Error: "no data", Date: date})
}

// WriteNoDataRange writes the 404 body echoing the requested range.
func WriteNoDataRange(w http.ResponseWriter, from, to models.Date) {
	WriteJSON(w, http.StatusNotFound, NoDataResponse{Error: "no data", From: from, To: to})
}

// WriteServiceError maps service errors to status codes: invalid input is
// 400, absence is 404, anything else is 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidDate), errors.Is(err, models.ErrInvalidRecord):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_input")
	case errors.Is(err, models.ErrNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "not_found")
	default:
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// DateParam parses a YYYYMMDD or YYYY-MM-DD value, writing a 400 on failure.
func DateParam(w http.ResponseWriter, name, raw string) (models.Date, bool) {
	d, err := models.ParseDate(raw)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, name+" must be YYYYMMDD or YYYY-MM-DD", "invalid_input")
		return "", false
	}
	return d, true
}

// RangeParams reads the from and to query parameters.
func RangeParams(w http.ResponseWriter, r *http.Request) (models.Date, models.Date, bool) {
	from, ok := DateParam(w, "from", r.URL.Query().Get("from"))
	if !ok {
		return "", "", false
	}
	to, ok := DateParam(w, "to", r.URL.Query().Get("to"))
	if !ok {
		return "", "", false
	}
	return from, to, true
}

// PathSegments splits the URL path after prefix into its non-empty parts.
// For /api/manual/20250115/BNC with prefix /api/manual/ it returns [20250115 BNC].
func PathSegments(r *http.Request, prefix string) []string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(path[len(prefix):], "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
