// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/openfloor/middleware"
	"github.com/danielhkuo/openfloor/realtime"
)

type StatsHandler struct {
	monitor *realtime.Monitor
}

func NewStatsHandler(monitor *realtime.Monitor) *StatsHandler {
	return &StatsHandler{monitor: monitor}
}

// GetStats handles GET /stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.monitor.Snapshot())
}

// Health handles GET /health
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
