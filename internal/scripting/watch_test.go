package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsScriptWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "spin.lua")
	if err := os.WriteFile(script, []byte("return {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Events:
		if got != script {
			t.Fatalf("event for %s, want %s", got, script)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no event for %s", script)
	}
}

func TestWatcherCloseClosesChannels(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	drained := make(chan struct{})
	go func() {
		for range w.Errors {
		}
		for range w.Events {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatalf("Errors or Events still open after Close")
	}
}
