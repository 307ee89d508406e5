package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStartWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	if err == nil {
		t.Fatal("expected error without roots")
	}
}

func TestStartWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bill.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	events, _, err := StartWatcher(context.Background(), WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case got := <-events:
		if got != path {
			t.Errorf("event path = %q, want %q", got, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan emitted nothing")
	}

	// The .txt must never show up.
	select {
	case got := <-events:
		t.Errorf("unexpected extra event: %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStartWatcherEmitsDebouncedCreates(t *testing.T) {
	dir := t.TempDir()
	events, _, err := StartWatcher(context.Background(), WatchConfig{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{
		filepath.Join(dir, "a.pdf"): false,
		filepath.Join(dir, "b.png"): false,
	}
	for path := range want {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.After(3 * time.Second)
	remaining := len(want)
	for remaining > 0 {
		select {
		case got := <-events:
			seen, ok := want[got]
			if !ok {
				t.Fatalf("unexpected path: %q", got)
			}
			if !seen {
				want[got] = true
				remaining--
			}
		case <-deadline:
			t.Fatalf("timed out, still waiting for %d paths: %v", remaining, want)
		}
	}
}
