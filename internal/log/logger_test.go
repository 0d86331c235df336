package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetbook/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentWorker, JSON: true, Output: &buf})
	logger.Debug("hidden")
	logger.WithComponent(ComponentAMQP).Info("hello", FieldPeriod, "2025-02")

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec[FieldComponent] != ComponentWorker || rec[FieldSubsystem] != ComponentAMQP || rec[FieldPeriod] != "2025-02" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("FromContext = %+v", l)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Output: &buf})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	recs := decodeLines(t, &buf)
	if len(recs) != 1 || recs[0][FieldRequestID] != "req_1" {
		t.Fatalf("records = %v", recs)
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			sl := NewStructuredLogger(New(Config{JSON: true, Output: &buf}))
			r := httptest.NewRequest(http.MethodGet, "/api/overview?year=2025&month=2", nil)
			sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1", "req_x")

			recs := decodeLines(t, &buf)
			if len(recs) != 1 {
				t.Fatalf("got %d records", len(recs))
			}
			rec := recs[0]
			if rec["level"] != tt.level {
				t.Errorf("level = %v, want %s", rec["level"], tt.level)
			}
			if rec[FieldStatusCode] != float64(tt.status) || rec[FieldQuery] != "year=2025&month=2" || rec[FieldRequestID] != "req_x" {
				t.Errorf("unexpected record: %v", rec)
			}
		})
	}
}

func TestLogBatch(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{JSON: true, Output: &buf}))
	sl.LogBatch(context.Background(), core.Period{Year: 2025, Month: 2}, 3, 2, 0, 1)

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	rec := recs[0]
	if rec["level"] != "WARN" || rec[FieldPeriod] != "2025-02" || rec[FieldFailed] != float64(1) || rec[FieldCreated] != float64(2) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestWithEntry(t *testing.T) {
	f := NewFields().WithEntry(core.Entry{ID: "e1", Category: "식비", Amount: core.Money{Units: 500}})
	if f[FieldEntryID] != "e1" || f[FieldAmount] != int64(500) {
		t.Errorf("fields = %v", f)
	}
	if _, ok := f[FieldTemplateID]; ok {
		t.Error("manual entries should not carry a template_id")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Error("ToSlice should hold key/value pairs")
	}
}
