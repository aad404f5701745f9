package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Disable()

	if !Enabled() {
		t.Fatal("expected logging to be enabled")
	}
	Log("smf", "offset %d", 42)
	if !strings.Contains(buf.String(), "smf        offset 42") {
		t.Fatalf("unexpected log line %q", buf.String())
	}

	Disable()
	buf.Reset()
	Log("smf", "dropped")
	if buf.Len() != 0 || Enabled() {
		t.Fatalf("expected nothing after Disable, got %q", buf.String())
	}
}

func TestLogEvery(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Disable()

	for i := 0; i < 6; i++ {
		LogEvery(3, "every", "tick")
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", n, buf.String())
	}
}

func TestEnableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	Log("repeat", "shift %d", 960)
	Disable()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Debug logging started") || !strings.Contains(string(data), "shift 960") {
		t.Fatalf("unexpected log file:\n%s", data)
	}
}
