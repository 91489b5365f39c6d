package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info(context.Background(), "rank applied", String("rank", "S"), Int64("beatmap_id", 5), Bool("present", true))

	out := buf.String()
	for _, want := range []string{"rank applied", "rank=S", "beatmap_id=5", "present=true", "source=logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestLoggerNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).Named("indicator").With(Int64("beatmap_id", 7))

	l.Info(context.Background(), "activated")

	out := buf.String()
	if !strings.Contains(out, "beatmap_id=7") {
		t.Errorf("expected bound field in %q", out)
	}
	if !strings.Contains(out, "indicator.") {
		t.Errorf("expected group prefix in %q", out)
	}
}

func TestSetLevelString(t *testing.T) {
	defer func() { _ = SetLevelString("info") }()

	var buf bytes.Buffer
	l := New(&buf)

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := SetLevelString("info"); err != nil {
		t.Fatal(err)
	}
	SetOutput(&buf)
	defer func() { _ = Init() }()

	Get().Info(context.Background(), "redirected")
	if !strings.Contains(buf.String(), "redirected") {
		t.Errorf("expected global logger to write to the new output, got %q", buf.String())
	}
	if Slog(Get()) == nil {
		t.Error("expected an slog logger behind the global logger")
	}
}
