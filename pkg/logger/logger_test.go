package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFor_AddsComponentField(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	Init(Options{Level: "debug", Output: &buf})

	log := For("ws")
	log.Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "ws" {
		t.Fatalf("expected component=ws, got %v", line["component"])
	}
	if line["message"] != "hello" {
		t.Fatalf("expected message=hello, got %v", line["message"])
	}
}

func TestGet_BeforeInitIsNop(t *testing.T) {
	Reset()
	defer Reset()

	log := Get()
	if log.GetLevel() != zerolog.Disabled {
		t.Fatalf("expected disabled nop logger, got level %v", log.GetLevel())
	}
}
