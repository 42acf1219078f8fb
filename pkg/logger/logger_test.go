package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":    LevelDebug,
		" WARNING": LevelWarn,
		"error":    LevelError,
		"nonsense": LevelInfo,
		"":         LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMarkersAndFiltering(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()
	defer Init("info")

	Init("info")
	Debugf("debug-msg")
	Infof("score %d", 10)
	Errorf("boom")

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug should be suppressed at info level: %q", out)
	}
	if !strings.Contains(out, "[*] score 10\n") {
		t.Fatalf("info line missing marker: %q", out)
	}
	if !strings.Contains(out, "[!] boom\n") {
		t.Fatalf("error line missing marker: %q", out)
	}

	buf.Reset()
	Init("error")
	Info("hello world")
	if buf.Len() != 0 {
		t.Fatalf("info should be suppressed at error level, got %q", buf.String())
	}
}

func TestTimestampsAndFatal(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()
	SetTimestamps(true)
	defer SetTimestamps(false)

	code := 0
	origExit := exit
	exit = func(c int) { code = c }
	defer func() { exit = origExit }()

	Fatalf("fatal %s", "here")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	line := buf.String()
	if !strings.Contains(line, "[!] fatal here") || strings.HasPrefix(line, "[!]") {
		t.Fatalf("expected timestamped fatal line, got %q", line)
	}
}
