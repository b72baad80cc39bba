package pipeline

import (
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("missing file must load empty: ok=%v err=%v", ok, err)
	}

	if err := store.Save(123); err != nil {
		t.Fatalf("save: %v", err)
	}

	cp, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok || cp.LastProcessedBlock != 123 {
		t.Fatalf("checkpoint mismatch: %+v ok=%v", cp, ok)
	}
}

func TestCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false)

	if err := store.Save(5); err != nil {
		t.Fatalf("disabled save must be a no-op: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("disabled load must report nothing: ok=%v err=%v", ok, err)
	}
}
