package httpapi

import "net/http"

// NewMux returns the raw mux so main() can attach extra routes.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{Checks: d.Checks}
	mux.HandleFunc("GET /health", hh.Health)

	// Postings
	ph := PostingsHandler{Store: d.Postings, Hub: d.Hub}
	mux.HandleFunc("GET /postings", ph.List)
	mux.HandleFunc("GET /postings/{id}", ph.Get)
	mux.HandleFunc("DELETE /postings/{id}", ph.Delete)

	// Applications
	ah := ApplicationsHandler{Apps: d.Applications, Hub: d.Hub}
	mux.HandleFunc("GET /applications", ah.List)
	mux.HandleFunc("POST /applications", ah.Create)
	mux.HandleFunc("GET /applications/{id}", ah.Get)
	mux.HandleFunc("DELETE /applications/{id}", ah.Delete)
	mux.HandleFunc("POST /applications/{id}/status", ah.UpdateStatus)
	mux.HandleFunc("POST /applications/{id}/interviews", ah.AddInterview)

	fh := FunnelHandler{Apps: d.Applications}
	mux.HandleFunc("GET /funnel", fh.Funnel)
	mux.HandleFunc("GET /funnel/sources", fh.Sources)

	eh := EmailsHandler{Runner: d.Runner}
	mux.HandleFunc("POST /emails/ingest", eh.Ingest)

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
	}
	mux.HandleFunc("GET /config", ch.Get)
	mux.HandleFunc("PUT /config", ch.Put)
	mux.HandleFunc("GET /config/path", ch.Path)
	mux.HandleFunc("GET /config/validate", ch.Validate)

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("POST /api/secrets/imap", sh.SetIMAPPassword)
	mux.HandleFunc("DELETE /api/secrets/imap", sh.DeleteIMAPPassword)

	sch := ScanHandler{Runner: d.Runner, Log: d.Log}
	mux.HandleFunc("GET /scan/status", sch.Status)
	mux.HandleFunc("POST /scan/run", sch.Run)

	// SSE events
	evh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("GET /events", evh.ServeSSE)

	if d.Checkpoint != nil {
		dh := DBHandler{Checkpoint: d.Checkpoint}
		mux.HandleFunc("POST /db/checkpoint", dh.CheckpointWAL)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	return mux
}

// NewHandler is NewMux behind the standard middleware stack.
func NewHandler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, Recover(d.Log), AccessLog(d.Log), Cors)
}
