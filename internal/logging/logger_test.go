package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func plain() *bool {
	v := false
	return &v
}

func TestNew_TraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "trace", Pretty: plain(), Output: &buf})

	logger.Trace().Msg("trace message")
	logger.Debug().Msg("debug message")

	output := buf.String()
	assert.Contains(t, output, "trace message")
	assert.Contains(t, output, "debug message")
}

func TestNew_InfoLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: plain(), Output: &buf})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "info message")
}

func TestNew_NonTerminalDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Output: &buf})

	logger.Info().Str("trans_id", "abc").Msg("session created")

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
	assert.Contains(t, line, `"trans_id":"abc"`)
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Pretty: plain(), Output: &buf}, "session_manager")

	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"session_manager"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
