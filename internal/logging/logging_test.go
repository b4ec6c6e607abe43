package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)

	log.Warn().Str("issue", "DEV-1").Msg("worklog fetch failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["issue"] != "DEV-1" {
		t.Errorf("issue = %v, want DEV-1", entry["issue"])
	}
}

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			log := New(tc.level, "json", &bytes.Buffer{})
			if log.GetLevel() != tc.want {
				t.Errorf("New(%q).GetLevel() = %v, want %v", tc.level, log.GetLevel(), tc.want)
			}
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "text", &buf)

	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("output %q should contain the info message", out)
	}
}
