package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/condor/pkg/config"
)

type stage string

func (s stage) String() string { return string(s) }

// capture returns a debug-level JSON logger and a decoder for its last entry
func capture(t *testing.T) (*Logger, func() map[string]interface{}) {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")
	return log, func() map[string]interface{} {
		t.Helper()
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
		buf.Reset()
		return entry
	}
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	log, last := capture(t)

	tests := []struct {
		name      string
		logFunc   func()
		wantLevel string
		wantMsg   string
	}{
		{"debug", func() { log.Debug("candidates built") }, "debug", "candidates built"},
		{"infof", func() { log.Infof("loaded %d options", 412) }, "info", "loaded 412 options"},
		{"warnf", func() { log.Warnf("retry attempt: %d", 2) }, "warn", "retry attempt: 2"},
		{"error", func() { log.Error("screen failed") }, "error", "screen failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.logFunc()
			entry := last()
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	log, last := capture(t)

	log.WithRun("run-1", "SPY").WithStage(stage("S1_CANDIDATES")).Info("generated")
	entry := last()
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "SPY", entry["ticker"])
	assert.Equal(t, "S1_CANDIDATES", entry["stage"])

	log.WithFields(map[string]interface{}{"strike": 540, "reason": "max_loss"}).
		WithError(errors.New("rejected")).Warn("candidate cut")
	entry = last()
	assert.Equal(t, float64(540), entry["strike"])
	assert.Equal(t, "max_loss", entry["reason"])
	assert.Equal(t, "rejected", entry["error"])
}

func TestNewWithWriter_Level(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.WithRun("r", "SPY").WithField("n", 3).Infof("candidates: %d", 3)
		log.WithError(errors.New("boom")).Error("ignored")
	})
}
