package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFallsBackToDefaultsWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")

	w, err := Watch(path, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if got := w.Values(); got != defaultValues() {
		t.Fatalf("expected default values with no file present, got %+v", got)
	}
}

func TestWatchLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")

	if err := os.WriteFile(path, []byte(`{"dismantle_batch_size": 256}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := Watch(path, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if got := w.Values().DismantleBatchSize; got != 256 {
		t.Fatalf("expected dismantle_batch_size=256, got %d", got)
	}
}

func TestWatchPicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")

	if err := os.WriteFile(path, []byte(`{"dismantle_batch_size": 10}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := Watch(path, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if got := w.Values().DismantleBatchSize; got != 10 {
		t.Fatalf("expected initial dismantle_batch_size=10, got %d", got)
	}

	if err := os.WriteFile(path, []byte(`{"dismantle_batch_size": 99}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Values().DismantleBatchSize == 99 {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("expected dismantle_batch_size to reach 99 after file update, got %d", w.Values().DismantleBatchSize)
}
