package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogWritesWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Log("search %q gen=%d", "idx", 3)
	LogTiming("recompute", time.Millisecond)
	LogEnterExit("replant")()

	out := buf.String()
	for _, want := range []string{`search "idx" gen=3`, "recompute took", "-> replant", "<- replant"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDisabledIsSilent(t *testing.T) {
	SetOutput(nil)
	if Enabled() {
		t.Fatal("expected debug logging disabled")
	}
	// Must not panic with a nil logger.
	Log("nothing")
	LogEnterExit("nothing")()
}
