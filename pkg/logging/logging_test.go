package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugSuppressedUnlessVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.SetVerbose(true)
	l.Debug("shown")
	assert.Contains(t, buf.String(), "DEBUG: shown")
}

func TestInfoWarnErrorAlwaysWrite(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Info("starting")
	l.Warn("retrying")
	l.Error("failed")

	out := buf.String()
	assert.Contains(t, out, "INFO: starting")
	assert.Contains(t, out, "WARN: retrying")
	assert.Contains(t, out, "ERROR: failed")
}

func TestEventLogsDebugOnSuccessAndErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)

	l.Event("dispatched", "orders.Created", "abc123", nil)
	assert.Contains(t, buf.String(), "dispatched event=orders.Created uuid=abc123")

	buf.Reset()
	l.Event("dispatch", "orders.Created", "abc123", errors.New("boom"))
	out := buf.String()
	assert.True(t, strings.Contains(out, "ERROR") && strings.Contains(out, "boom"))
}
