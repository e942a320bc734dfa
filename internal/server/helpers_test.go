package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/bolsa/internal/models"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid date", fmt.Errorf("%w: %q", models.ErrInvalidDate, "2025"), http.StatusBadRequest},
		{"invalid record", fmt.Errorf("%w: negative price", models.ErrInvalidRecord), http.StatusBadRequest},
		{"not found", fmt.Errorf("no rate: %w", models.ErrNotFound), http.StatusNotFound},
		{"other", errors.New("store closed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteServiceError(rr, tt.err)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, errors.New("badger: secret path /var/lib/x"))
	assert.NotContains(t, rr.Body.String(), "secret")
}

func TestWriteNoData(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteNoData(rr, "20251225")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"no data","date":"20251225"}`, rr.Body.String())
}

func TestWriteNoDataRange(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteNoDataRange(rr, "20250101", "20250131")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"no data","from":"20250101","to":"20250131"}`, rr.Body.String())
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/cache", nil)
	rr := httptest.NewRecorder()

	ok := RequireMethod(rr, req, http.MethodGet, http.MethodDelete)
	assert.False(t, ok)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, DELETE", rr.Header().Get("Allow"))
}

func TestDateParam(t *testing.T) {
	rr := httptest.NewRecorder()
	d, ok := DateParam(rr, "date", "2025-01-15")
	require.True(t, ok)
	assert.Equal(t, models.Date("20250115"), d)

	rr = httptest.NewRecorder()
	_, ok = DateParam(rr, "date", "15/01/2025")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_input")
}

func TestRangeParams_MissingTo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/index?from=20250101", nil)
	rr := httptest.NewRecorder()

	_, _, ok := RangeParams(rr, req)
	assert.False(t, ok)
	assert.Contains(t, rr.Body.String(), "to must be")
}

func TestDecodeJSON_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/manual/20250115", strings.NewReader("{nope"))
	rr := httptest.NewRecorder()

	var v map[string]interface{}
	assert.False(t, DecodeJSON(rr, req, &v))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPathSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/api/manual/20250115/BNC", []string{"20250115", "BNC"}},
		{"/api/manual/20250115/", []string{"20250115"}},
		{"/api/manual/", nil},
		{"/api/other", nil},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		assert.Equal(t, tt.want, PathSegments(req, "/api/manual/"), tt.path)
	}
}
