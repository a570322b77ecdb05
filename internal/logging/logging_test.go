package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	l.WithField("session_id", "abc").Debug("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "abc", entry["session_id"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New(config.LogConfig{Level: "chatty"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
