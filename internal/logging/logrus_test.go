package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIMLogger_Levels(t *testing.T) {
	t.Parallel()

	base, hook := logrustest.NewNullLogger()
	base.SetLevel(log.DebugLevel)

	l := NewIMLogger(base)
	l.Debug("HTTP Request", map[string]interface{}{"method": "GET"})
	l.Info("created", nil)
	l.Warn("retrying", map[string]interface{}{"attempt": 2})
	l.Error("failed", map[string]interface{}{"error": "boom"})

	entries := hook.AllEntries()
	require.Len(t, entries, 4)

	assert.Equal(t, log.DebugLevel, entries[0].Level)
	assert.Equal(t, "HTTP Request", entries[0].Message)
	assert.Equal(t, "GET", entries[0].Data["method"])
	assert.Equal(t, log.InfoLevel, entries[1].Level)
	assert.Equal(t, log.WarnLevel, entries[2].Level)
	assert.Equal(t, 2, entries[2].Data["attempt"])
	assert.Equal(t, log.ErrorLevel, entries[3].Level)
}

func TestIMLogger_RespectsLevel(t *testing.T) {
	t.Parallel()

	base, hook := logrustest.NewNullLogger()
	base.SetLevel(log.WarnLevel)

	l := NewIMLogger(base)
	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	l.Warn("shown", nil)

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "shown", hook.LastEntry().Message)
}

func TestNew(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}

	l, err := New(buf, "debug", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, l.GetLevel())

	NewIMLogger(l).Debug("VM state observed", map[string]interface{}{"state": "running"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "VM state observed", line["msg"])
	assert.Equal(t, "running", line["state"])

	l, err = New(buf, "", "")
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, l.GetLevel())

	_, err = New(buf, "loud", FormatText)
	require.Error(t, err)

	_, err = New(buf, "info", "xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
