// pattern: Imperative Shell

package logging

import (
	"testing"
)

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	if logger == nil {
		t.Fatal("NopLogger() returned nil")
	}

	// Should not panic
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")

	if logger.With("key", "value") != logger {
		t.Error("With() on a nop logger should return the same logger")
	}
}

func TestTestLogManager_For(t *testing.T) {
	lm := NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	logger := lm.For("test")
	if logger != lm.For("test") {
		t.Error("For() should return the cached logger for the same scope")
	}
	if logger.Scope() != "test" {
		t.Errorf("Scope() = %q, want %q", logger.Scope(), "test")
	}

	logger.Info("test message", "path", "/tmp/x")

	select {
	case entry := <-lm.Channel():
		if entry.Message != "test message" {
			t.Errorf("expected 'test message', got %q", entry.Message)
		}
		if entry.Scope != "test" {
			t.Errorf("expected scope 'test', got %q", entry.Scope)
		}
		if entry.Fields["path"] != "/tmp/x" {
			t.Errorf("expected path field, got %v", entry.Fields)
		}
	default:
		t.Error("no entry received on channel")
	}
}

func TestTestLogManager_Messages(t *testing.T) {
	lm := NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	logger := lm.For("bundle").With("root", "/crate")
	logger.Debug("one")
	logger.Warn("two")

	got := lm.Messages()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("Messages() = %v, want [one two]", got)
	}
	if rest := lm.Messages(); len(rest) != 0 {
		t.Errorf("second Messages() = %v, want empty", rest)
	}
}
