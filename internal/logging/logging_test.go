package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"DEBUG": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"bogus": logrus.InfoLevel,
		"":      logrus.InfoLevel,
	}
	for in, want := range cases {
		log := NewLogger(&bytes.Buffer{}, in, "text")
		assert.Equal(t, want, log.GetLevel(), in)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "info", "json")
	log.WithField("file", "a.jpg").Info("converted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "a.jpg", entry["file"])
	assert.Equal(t, "converted", entry["msg"])
}
