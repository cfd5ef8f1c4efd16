package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestInit_JSONWithServiceAndComponent(t *testing.T) {
	reset()
	defer reset()

	var buf bytes.Buffer
	Init(Options{Level: "debug", Output: &buf, Service: "campaign-server"})

	log := Component("aggregator")
	log.Debug().Str("cycle_id", "c-1").Msg("campaign view ready")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON entry, got %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"service":   "campaign-server",
		"component": "aggregator",
		"cycle_id":  "c-1",
		"level":     "debug",
		"message":   "campaign view ready",
	} {
		if entry[key] != want {
			t.Errorf("expected %s=%q, got %v", key, want, entry[key])
		}
	}
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	reset()
	defer reset()

	var first, second bytes.Buffer
	Init(Options{Level: "error", Output: &first})
	Init(Options{Level: "trace", Output: &second})

	l := Get()
	l.Info().Msg("suppressed")
	if first.Len() != 0 || second.Len() != 0 {
		t.Errorf("expected info to be filtered at error level, got %q / %q", first.String(), second.String())
	}
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	reset()
	defer func() {
		if recover() == nil {
			t.Error("expected Get to panic before Init")
		}
	}()
	Get()
}
