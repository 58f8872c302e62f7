package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestComponentAddsField(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Component(NewZapAdapter(zap.New(core)), "scan")

	l.Info("batch done", map[string]interface{}{"saved": 3})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "scan", ctx["component"])
		assert.EqualValues(t, 3, ctx["saved"])
	}
}

func TestWithErrorKeepsMessage(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapAdapter(zap.New(core)).WithError(errors.New("boom"))

	l.Warn("store failed", nil)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	}
}

func TestComponentNilFallsBackToNoOp(t *testing.T) {
	l := Component(nil, "x")
	assert.NotPanics(t, func() { l.Error("ignored", nil) })
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	l := New("chatty", "json")
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}
