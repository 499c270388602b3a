package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	restore := SetWriter(&buf)
	defer restore()

	data := map[string]interface{}{
		"success": true,
		"domain":  "app.example.com",
	}
	if err := JSON(data); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["domain"] != "app.example.com" {
		t.Errorf("unexpected domain: %v", decoded["domain"])
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	restore := SetWriter(&buf)
	defer restore()

	Table(
		[]string{"SNAPSHOT", "CREATED"},
		[][]string{
			{"backup-20260829-101500", "2026-08-29 10:15:00"},
			{"backup-20260828-090000", "2026-08-28 09:00:00"},
		},
	)

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator, and 2 rows; got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "SNAPSHOT") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.Contains(lines[2], "backup-20260829-101500") {
		t.Errorf("missing row: %q", lines[2])
	}
}

func TestStep(t *testing.T) {
	var buf bytes.Buffer
	restore := SetWriter(&buf)
	defer restore()

	Step(2, 5, "obtaining certificate for %s", "app.example.com")

	out := buf.String()
	if !strings.Contains(out, "[2/5]") {
		t.Errorf("missing step counter: %q", out)
	}
	if !strings.Contains(out, "obtaining certificate for app.example.com") {
		t.Errorf("missing message: %q", out)
	}
}

func TestStatusPrefixes(t *testing.T) {
	var buf bytes.Buffer
	restore := SetWriter(&buf)
	defer restore()

	Success("activated")
	Error("rolled back")
	Warn("snapshot dir missing")
	Info("testing configuration")

	out := buf.String()
	for _, want := range []string{"✓ activated", "✗ rolled back", "! snapshot dir missing", "→ testing configuration"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
