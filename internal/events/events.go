// Package events carries engine notifications to SSE subscribers.
package events

import (
	"encoding/json"
	"time"
)

// Event types published by the engine.
const (
	TypePostingMatched = "posting_matched"
	TypeScanStarted    = "scan_started"
	TypeScanFinished   = "scan_finished"
	TypeIngestFinished = "ingest_finished"
	TypeStatusChanged  = "application_status_changed"
	TypeConfigReloaded = "config_reloaded"
	TypePostingDeleted = "posting_deleted"
	TypeAppDeleted     = "application_deleted"
)

const schemaVersion = 1

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes one event as the JSON line sent to subscribers.
func MakeEvent(reqID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	b, _ := json.Marshal(Event{
		Type:      typ,
		Version:   schemaVersion,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	})
	return string(b)
}

// Publisher is implemented by Hub; components depend on this instead.
type Publisher interface {
	Emit(reqID, typ string, data any)
}
