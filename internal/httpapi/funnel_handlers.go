package httpapi

import (
	"net/http"

	"jobpilot/internal/funnel"
	"jobpilot/internal/store"
)

type FunnelHandler struct {
	Apps Applications
}

func (h FunnelHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Apps.List(r.Context(), store.ApplicationFilter{})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, funnel.Compute(apps))
}

func (h FunnelHandler) Sources(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Apps.List(r.Context(), store.ApplicationFilter{})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	stats := funnel.BySource(apps)
	if stats == nil {
		stats = []funnel.SourceStats{}
	}
	writeJSON(w, stats)
}
