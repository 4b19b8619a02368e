package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raizurai/userhub/internal/config"
)

func TestFileSink_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")

	sink, err := NewFileSink(path, config.RotationConfig{MaxSizeMB: 10})
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	rec := Record{
		RequestID: "req-1",
		Method:    "POST",
		Path:      "/api/v1/users/",
		Client:    "127.0.0.1",
		Status:    201,
		ElapsedMS: 12,
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	for i := 0; i < 2; i++ {
		if err := sink.Write(context.Background(), rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++

		var got map[string]any
		if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}

		if got["request_id"] != "req-1" || got["method"] != "POST" || got["event"] != "request" {
			t.Fatalf("unexpected entry: %v", got)
		}
		if got["status"] != float64(201) {
			t.Fatalf("status: got %v", got["status"])
		}
	}

	if lines != 2 {
		t.Fatalf("got %d lines, want 2", lines)
	}
}

func TestFileSink_RotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")

	sink, err := NewFileSink(path, config.RotationConfig{MaxSizeMB: 1, MaxBackups: 3})
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	rec := Record{RequestID: strings.Repeat("r", 512), Method: "GET", Path: "/api/v1/users/", Status: 200}

	// a little over 1 MB of records
	for i := 0; i < 2200; i++ {
		if err := sink.Write(context.Background(), rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "audit*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected a rotated backup next to audit.log, got %v", files)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() > 1024*1024 {
		t.Fatalf("active file is %d bytes, want at most 1 MB", info.Size())
	}
}

func TestStreamValues_StringifiesNumbers(t *testing.T) {
	v := streamValues(Record{Status: 404, ElapsedMS: 7, At: time.Unix(0, 0)})

	if v["status"] != "404" || v["elapsed_ms"] != "7" {
		t.Fatalf("unexpected values: %v", v)
	}
	if v["at"] != "1970-01-01T00:00:00Z" {
		t.Fatalf("at: got %v", v["at"])
	}
}

func TestNewSink_NoneIsNop(t *testing.T) {
	sink, err := NewSink(context.Background(), config.AuditConfig{Sink: "none"}, config.RotationConfig{})
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if _, ok := sink.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", sink)
	}
}
