package input

import (
	"io"
	"testing"
)

func TestStringReaderReplaysAnswers(t *testing.T) {
	reader := NewStringReader("first\n", "second\n")

	for _, want := range []string{"first\n", "second\n"} {
		got, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString failed: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}

	if _, err := reader.ReadString('\n'); err != io.EOF {
		t.Errorf("exhausted reader should return io.EOF, got %v", err)
	}
}

func TestStringReaderEmpty(t *testing.T) {
	got, err := NewStringReader().ReadString('\n')
	if err != io.EOF || got != "" {
		t.Errorf("empty reader should return (\"\", io.EOF), got (%q, %v)", got, err)
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    string
	}{
		{"trims newline", []string{"yes\n"}, "yes"},
		{"trims surrounding space", []string{"  y \n"}, "y"},
		{"eof reads as empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Line(NewStringReader(tt.answers...))
			if err != nil {
				t.Fatalf("Line failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Line = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewStdinReader(t *testing.T) {
	if NewStdinReader() == nil {
		t.Fatal("expected non-nil reader")
	}
}
