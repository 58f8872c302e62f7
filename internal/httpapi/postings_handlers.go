package httpapi

import (
	"net/http"
	"strconv"

	"jobpilot/internal/events"
	"jobpilot/internal/store"
)

type PostingsHandler struct {
	Store PostingStore
	Hub   *events.Hub
}

func (h PostingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	postings, err := h.Store.ListPostings(r.Context(), store.ListPostingsOpts{
		Sort:   q.Get("sort"),
		Window: q.Get("window"),
		Band:   q.Get("band"),
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if postings == nil {
		postings = []store.Posting{}
	}
	writeJSON(w, postings)
}

func (h PostingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	p, err := h.Store.GetPosting(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h PostingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := h.Store.DeletePosting(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if h.Hub != nil {
		h.Hub.Emit(RequestIDFrom(r.Context()), events.TypePostingDeleted, map[string]any{"id": id})
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
