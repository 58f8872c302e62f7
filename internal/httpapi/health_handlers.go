package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"
)

type HealthHandler struct {
	Checks map[string]func(ctx context.Context) error
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	checks := map[string]string{}
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			ok = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, map[string]any{"ok": ok, "checks": checks})
}
