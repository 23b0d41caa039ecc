package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(int(LogLevelInfo))
	t.Cleanup(func() { SetLogLevel(int(LogLevelError)) })

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	Noticef("new job %s", "bf")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Fatalf("info line missing: %q", out)
	}
	if !strings.Contains(out, "event=notice") {
		t.Fatalf("notice tag missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":        LogLevelError,
		"error":   LogLevelError,
		"WARN":    LogLevelWarning,
		"warning": LogLevelWarning,
		"info":    LogLevelInfo,
		" debug ": LogLevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLogLevel(int(LogLevelWarning))
	t.Cleanup(func() { SetLogLevel(int(LogLevelError)) })

	WithFields(Fields{"remote": "10.0.0.1:3333"}).Warn("bad frame")
	if !strings.Contains(buf.String(), "remote=") {
		t.Fatalf("structured field missing: %q", buf.String())
	}
}
