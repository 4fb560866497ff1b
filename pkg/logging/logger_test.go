package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo || cfg.Pretty || cfg.Output == nil {
		t.Errorf("DefaultConfig() = %+v, want info JSON to stderr", cfg)
	}
}

func TestSetup_WritesAtLevel(t *testing.T) {
	emit := map[LogLevel]func(zerolog.Logger, string){
		LevelDebug: func(l zerolog.Logger, msg string) { l.Debug().Str("end", "head").Msg(msg) },
		LevelInfo:  func(l zerolog.Logger, msg string) { l.Info().Str("end", "head").Msg(msg) },
		LevelWarn:  func(l zerolog.Logger, msg string) { l.Warn().Str("end", "head").Msg(msg) },
		LevelError: func(l zerolog.Logger, msg string) { l.Error().Str("end", "head").Msg(msg) },
	}

	for _, level := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		t.Run(string(level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: level, Output: buf})

			emit[level](logger, "page fetched")

			out := buf.String()
			if !strings.Contains(out, "page fetched") || !strings.Contains(out, `"end":"head"`) {
				t.Errorf("output %q misses message or field", out)
			}
			if !strings.Contains(out, `"level":"`+string(level)+`"`) {
				t.Errorf("output %q misses level %s", out, level)
			}
		})
	}
}

func TestSetup_NilOutput(t *testing.T) {
	// Must not panic; output goes to stderr.
	logger := Setup(Config{Level: LevelError})
	logger.Debug().Msg("discarded")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogLevel_Zerolog(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := tt.input.zerolog(); got != tt.expected {
				t.Errorf("%q.zerolog() = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: "loud", Output: buf})

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered at the fallback level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info message should pass at the fallback level")
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	logger.Info().Str("end", "head").Msg("page loaded")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("pretty output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "page loaded") || !strings.Contains(out, "head") {
		t.Errorf("unexpected pretty output %q", out)
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("connection-controller")
	logger.Info().Int("edges", 10).Msg("Initial page loaded")

	out := buf.String()
	for _, want := range []string{`"component":"connection-controller"`, `"edges":10`, "Initial page loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q misses %s", out, want)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})
	logger := NewLogger("relay-source")

	logger.Debug().Msg("fetcher transition")
	logger.Info().Msg("page loaded")
	logger.Warn().Msg("load rejected")
	logger.Error().Msg("retries exhausted")

	out := buf.String()
	tests := []struct {
		msg  string
		want bool
	}{
		{"fetcher transition", false},
		{"page loaded", false},
		{"load rejected", true},
		{"retries exhausted", true},
	}
	for _, tt := range tests {
		if got := strings.Contains(out, tt.msg); got != tt.want {
			t.Errorf("%q present = %v, want %v at warn level", tt.msg, got, tt.want)
		}
	}
}
