package httpapi

import (
	"context"
	"errors"
	"net/http"

	"jobpilot/internal/logger"
	"jobpilot/internal/pipeline"
)

type ScanHandler struct {
	Runner Runner
	Log    logger.Logger
}

func (h ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Runner.Status())
}

// Run starts a scan in the background; progress is visible through
// /scan/status and the event stream.
func (h ScanHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Runner.Status().Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}
	go func() {
		if _, err := h.Runner.RunScan(context.Background()); err != nil && !errors.Is(err, pipeline.ErrRunning) {
			logger.Component(h.Log, "http").WithError(err).Warn("manual scan failed", nil)
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
