package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/store"
	"jobpilot/internal/tracker"
)

type ApplicationsHandler struct {
	Apps Applications
	Hub  *events.Hub
}

func (h ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ApplicationFilter{Company: q.Get("company")}
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
		f.Status = st
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	apps, err := h.Apps.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if apps == nil {
		apps = []domain.Application{}
	}
	writeJSON(w, apps)
}

func (h ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in tracker.NewApplication
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	a, err := h.Apps.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

func (h ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Apps.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (h ApplicationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Apps.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if h.Hub != nil {
		h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeAppDeleted, map[string]any{"id": id})
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}
	a, err := h.Apps.UpdateStatus(r.Context(), r.PathValue("id"), to, req.Notes)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if h.Hub != nil {
		h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeStatusChanged, map[string]any{
			"id":     a.ID,
			"status": a.Status,
		})
	}
	writeJSON(w, a)
}

func (h ApplicationsHandler) AddInterview(w http.ResponseWriter, r *http.Request) {
	var in tracker.InterviewInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	a, iv, err := h.Apps.AddInterview(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"application": a, "interview": iv})
}
