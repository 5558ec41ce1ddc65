package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	type blob struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := store.Save("sample", blob{Name: "x", Count: 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got blob
	found, err := store.Load("sample", &got)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("Load: blob not found after Save")
	}
	if got.Name != "x" || got.Count != 3 {
		t.Errorf("Load = %+v, want {x 3}", got)
	}
}

func TestLoadMissing(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var v map[string]string
	found, err := store.Load("nope", &v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("Load reported a missing blob as found")
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	var v map[string]string
	if _, err := store.Load("bad", &v); err == nil {
		t.Error("Load of corrupt blob did not report an error")
	}
}

func TestSaveWaitsForContendedLock(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	// Hold the directory lock from a second handle, as a concurrent nt
	// process would, and release it shortly after.
	other := flock.New(filepath.Join(dir, ".lock"))
	if err := other.Lock(); err != nil {
		t.Fatal(err)
	}
	released := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = other.Unlock()
		close(released)
	}()

	if err := store.Save("config", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("Save under contention: %v", err)
	}
	<-released

	var got map[string]string
	if ok, err := store.Load("config", &got); err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got["k"] != "v" {
		t.Errorf("got %v", got)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Delete("ghost"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}
