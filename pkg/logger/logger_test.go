package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		isDevelopment bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{
			name:          "production defaults to info with json",
			logLevel:      "",
			isDevelopment: false,
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "development defaults to debug with text",
			logLevel:      "",
			isDevelopment: true,
			expectedLevel: logrus.DebugLevel,
			expectJSON:    false,
		},
		{
			name:          "explicit level wins",
			logLevel:      "warn",
			isDevelopment: true,
			expectedLevel: logrus.WarnLevel,
			expectJSON:    false,
		},
		{
			name:          "case insensitive level",
			logLevel:      "ERROR",
			isDevelopment: false,
			expectedLevel: logrus.ErrorLevel,
			expectJSON:    true,
		},
		{
			name:          "invalid level defaults to info",
			logLevel:      "shouting",
			isDevelopment: false,
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("LOG_FORMAT")
			Logger = nil

			log := InitLogger(tt.logLevel, tt.isDevelopment)

			assert.Equal(t, tt.expectedLevel, log.GetLevel(), "log level mismatch")
			if tt.expectJSON {
				_, ok := log.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "expected JSON formatter")
			} else {
				_, ok := log.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "expected text formatter")
			}
		})
	}
}

func TestLogOutput(t *testing.T) {
	Logger = nil
	log := InitLogger("debug", false)

	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithFields(logrus.Fields{
		"optimization_id": "test-123",
		"gameweek":        7,
		"pool_size":       412,
	}).Info("test message")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err, "output should be valid JSON")

	assert.Equal(t, "test message", logEntry["msg"])
	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "test-123", logEntry["optimization_id"])
	assert.EqualValues(t, 7, logEntry["gameweek"])
	assert.Contains(t, logEntry, "time")
}

func TestGetLogger(t *testing.T) {
	Logger = nil

	logger1 := GetLogger()
	assert.NotNil(t, logger1)

	logger2 := GetLogger()
	assert.Same(t, logger1, logger2)
}

func TestContextHelpers(t *testing.T) {
	Logger = nil
	log := InitLogger("debug", false)

	var buf bytes.Buffer
	log.SetOutput(&buf)

	WithOptimizationContext("opt-456", 412, 7).Debug("solving")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "opt-456", logEntry["optimization_id"])
	assert.EqualValues(t, 412, logEntry["pool_size"])
	assert.EqualValues(t, 7, logEntry["gameweek"])

	buf.Reset()
	WithComponent("player_service").Info("refreshed")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "player_service", logEntry["component"])

	buf.Reset()
	WithRequestContext("req-1", "opt-456").Info("request processing")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "req-1", logEntry["request_id"])
}
