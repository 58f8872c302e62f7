package httpapi

import (
	"errors"
	"net/http"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/pipeline"
)

type EmailsHandler struct {
	Runner Runner
}

type emailIn struct {
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	HTML       string    `json:"html"`
	ReceivedAt time.Time `json:"received_at"`
}

type ingestReq struct {
	Emails []emailIn `json:"emails"`
}

// Ingest applies the posted emails. With no body it pulls the configured
// mailbox instead.
func (h EmailsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestReq
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}

	var (
		rep pipeline.IngestReport
		err error
	)
	if len(req.Emails) == 0 {
		rep, err = h.Runner.RunMail(r.Context())
	} else {
		emails := make([]domain.Email, 0, len(req.Emails))
		for _, e := range req.Emails {
			emails = append(emails, domain.Email(e))
		}
		rep, err = h.Runner.IngestEmails(r.Context(), emails)
	}
	if errors.Is(err, pipeline.ErrRunning) {
		WriteError(w, r, http.StatusConflict, "already_running", err.Error())
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, rep)
}
