package logger

import "testing"

func TestNew_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log, err := New(level, "json")
		if err != nil {
			t.Fatalf("New(%q): %v", level, err)
		}
		if log == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	log, err := New("info", "console")
	if err != nil {
		t.Fatalf("New console: %v", err)
	}
	if log == nil {
		t.Fatal("nil logger")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Infow("discarded", "key", "value")
}
