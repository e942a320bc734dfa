package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bobmcallan/bolsa/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)

	// Market data
	mux.HandleFunc("/api/market/latest", s.handleMarketLatest)
	mux.HandleFunc("/api/market/", s.routeMarket)
	mux.HandleFunc("/api/history", s.handleSymbolHistory)
	mux.HandleFunc("/api/index", s.handleIndexHistory)
	mux.HandleFunc("/api/index/chart", s.handleIndexChart)

	// Manual overrides
	mux.HandleFunc("/api/manual", s.handleManualList)
	mux.HandleFunc("/api/manual/", s.routeManual)

	// Caches and store
	mux.HandleFunc("/api/cache", s.handleCache)
	mux.HandleFunc("/api/stats", s.handleStats)

	// Exchange rates
	mux.HandleFunc("/api/fx", s.handleRates)
	mux.HandleFunc("/api/fx/", s.routeRates)
}

// routeMarket dispatches /api/market/{date}.
func (s *Server) routeMarket(w http.ResponseWriter, r *http.Request) {
	parts := PathSegments(r, "/api/market/")
	if len(parts) != 1 {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleSnapshot(w, r, parts[0])
}

// routeManual dispatches /api/manual/{date}[/verify|/{symbol}].
func (s *Server) routeManual(w http.ResponseWriter, r *http.Request) {
	parts := PathSegments(r, "/api/manual/")
	switch len(parts) {
	case 0:
		s.handleManualList(w, r)
	case 1:
		s.handleManualDay(w, r, parts[0])
	case 2:
		if parts[1] == "verify" {
			s.handleManualVerify(w, r, parts[0])
			return
		}
		s.handleManualRecordDelete(w, r, parts[0], parts[1])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeRates dispatches /api/fx/{date}.
func (s *Server) routeRates(w http.ResponseWriter, r *http.Request) {
	parts := PathSegments(r, "/api/fx/")
	switch len(parts) {
	case 0:
		s.handleRates(w, r)
	case 1:
		s.handleRate(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleConfig returns the effective configuration without credentials.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment": cfg.Environment,
		"storage": map[string]string{
			"backend":  cfg.Storage.Backend,
			"location": cfg.Storage.Location(),
		},
		"archive":   cfg.Archive,
		"bvc":       cfg.Clients.BVC,
		"cache":     cfg.Cache,
		"history":   cfg.History,
		"locator":   cfg.Locator,
		"scheduler": cfg.Scheduler,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(s.app.StartupTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  mem.HeapAlloc / (1 << 20),
		"num_gc":         mem.NumGC,
	})
}
