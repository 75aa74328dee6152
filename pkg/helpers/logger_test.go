package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, NewLogger("app", "development").GetLevel())
	l := NewLogger("app", "production")
	require.Equal(t, logrus.InfoLevel, l.GetLevel())
	_, isJSON := l.Formatter.(*logrus.JSONFormatter)
	require.True(t, isJSON)
}

func TestLogErrorAddsErrorField(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	LogError(l, "boom", errors.New("disk full"), logrus.Fields{"handle": "h1"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "boom", entry["msg"])
	require.Equal(t, "disk full", entry["error"])
	require.Equal(t, "h1", entry["handle"])
	require.Equal(t, "error", entry["level"])
}
