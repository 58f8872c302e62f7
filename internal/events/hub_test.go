package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubEmit(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Emit("req-1", TypeScanFinished, map[string]int{"saved": 3})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(<-ch), &e))
	assert.Equal(t, TypeScanFinished, e.Type)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, 1, e.Version)
	assert.JSONEq(t, `{"saved":3}`, string(e.Data))
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish("x")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestUnsubscribeTwice(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())
	h.Unsubscribe(ch)
	assert.NotPanics(t, func() { h.Unsubscribe(ch) })
	assert.Zero(t, h.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}
