package profiler

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestTickLogsAfterInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(WithInterval(time.Hour), WithLogger(log.New(&buf, "", 0)))
	for i := 0; i < 3; i++ {
		if p.Tick(4) {
			t.Fatal("logged before the interval elapsed")
		}
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}

	p = NewProfiler(WithInterval(0), WithLogger(log.New(&buf, "", 0)))
	if !p.Tick(6) {
		t.Fatal("expected stats with a zero interval")
	}
	if out := buf.String(); !strings.Contains(out, "[profiler] TPS:") || !strings.Contains(out, "Objects: 6.0") {
		t.Errorf("output = %q", out)
	}
}
