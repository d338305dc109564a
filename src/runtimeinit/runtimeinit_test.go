package runtimeinit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"screen-ocr/src/config"
	"screen-ocr/src/ocr"
)

func tessdataDir(t *testing.T, withModel bool) string {
	t.Helper()
	dir := t.TempDir()
	if withModel {
		if err := os.WriteFile(filepath.Join(dir, "eng.traineddata"), []byte("model"), 0o644); err != nil {
			t.Fatalf("write model: %v", err)
		}
	}
	return dir
}

func TestBootstrapSucceeds(t *testing.T) {
	t.Setenv(config.EnvPathEnvVar, "")
	t.Setenv(config.FileLoggingEnvVar, "true")
	dir := tessdataDir(t, true)

	var loggingEnabled bool
	clipboardCalls := 0
	cfg, err := Bootstrap(Options{
		LoadOptions:   config.LoadOptions{TessdataDirOverride: dir},
		SetupLogging:  func(enabled bool) { loggingEnabled = enabled },
		InitClipboard: func() error { clipboardCalls++; return nil },
	})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if cfg.TessdataDir != dir {
		t.Errorf("Expected TessdataDir %q, got %q", dir, cfg.TessdataDir)
	}
	if !loggingEnabled {
		t.Error("Expected logging setup to receive the file logging flag")
	}
	if clipboardCalls != 1 {
		t.Errorf("Expected clipboard init once, got %d", clipboardCalls)
	}
}

func TestBootstrapClipboardFailureIsNotFatal(t *testing.T) {
	t.Setenv(config.EnvPathEnvVar, "")
	dir := tessdataDir(t, true)

	_, err := Bootstrap(Options{
		LoadOptions:   config.LoadOptions{TessdataDirOverride: dir},
		InitClipboard: func() error { return errors.New("no display") },
	})
	if err != nil {
		t.Fatalf("Expected clipboard failure to be tolerated, got %v", err)
	}
}

func TestBootstrapMissingModel(t *testing.T) {
	t.Setenv(config.EnvPathEnvVar, "")
	dir := tessdataDir(t, false)

	tests := []struct {
		name      string
		show      bool
		wantShown bool
	}{
		{name: "Blocking notice", show: true, wantShown: true},
		{name: "Silent", show: false, wantShown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shown string
			clipboardCalled := false
			_, err := Bootstrap(Options{
				LoadOptions:             config.LoadOptions{TessdataDirOverride: dir},
				ShowBlockingEngineError: tt.show,
				ShowError:               func(title, message string) { shown = title + ": " + message },
				InitClipboard:           func() error { clipboardCalled = true; return nil },
			})
			if err == nil {
				t.Fatal("Expected startup check to fail")
			}
			var engineErr *ocr.EngineError
			if !errors.As(err, &engineErr) || engineErr.Op != "init" {
				t.Fatalf("Expected init EngineError, got %v", err)
			}
			if (shown != "") != tt.wantShown {
				t.Fatalf("Expected notice shown=%v, got %q", tt.wantShown, shown)
			}
			if tt.wantShown && !strings.Contains(shown, "eng.traineddata") {
				t.Errorf("Expected notice to name the model file, got %q", shown)
			}
			if clipboardCalled {
				t.Error("Expected clipboard init to be skipped after a failed probe")
			}
		})
	}
}
