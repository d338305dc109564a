package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"newlines", "a\nb\r\nc", `a\nb\r\nc`},
		{"control", "x\x00y\x1b", `x\x00y\x1b`},
		{"tab", "a\tb", `a\tb`},
		{"unicode kept", "naïve × café", "naïve × café"},
		{"truncated", strings.Repeat("é", 120), strings.Repeat("é", 100) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.in); got != tt.want {
				t.Fatalf("SanitizeForLog(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	w, err := NewRotatingWriter(path, 10)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer w.Close()

	for _, line := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n", "dddddddd\n", "eeeeeeee\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	read := func(p string) string {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		return string(b)
	}
	if got := read(path); got != "eeeeeeee\n" {
		t.Fatalf("expected newest line in base file, got %q", got)
	}
	if got := read(path + ".1"); got != "dddddddd\n" {
		t.Fatalf("unexpected .1: %q", got)
	}
	if got := read(path + ".3"); got != "bbbbbbbb\n" {
		t.Fatalf("unexpected .3: %q", got)
	}
	if _, err := os.Stat(path + ".4"); !os.IsNotExist(err) {
		t.Fatal("expected at most three archives")
	}
}
