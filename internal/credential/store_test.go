package credential

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveReadClear(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, ok := store.Read(); ok {
		t.Error("Read() on empty store should report absent")
	}

	if err := store.Save("token-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, ok := store.Read()
	if !ok || token != "token-1" {
		t.Errorf("Read() = (%q, %v), want (token-1, true)", token, ok)
	}

	// New login overwrites the prior credential.
	if err := store.Save("token-2"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, _ = store.Read()
	if token != "token-2" {
		t.Errorf("Read() = %q, want token-2", token)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := store.Read(); ok {
		t.Error("Read() after Clear() should report absent")
	}
}

func TestFileStore_ClearIdempotent(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on empty store error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestFileStore_EmptyFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, TokenFileName), []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Read(); ok {
		t.Error("Read() of whitespace-only file should report absent")
	}
}

func TestFileStore_Permissions(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Save("secret"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
}

func TestMemStore_CountsClears(t *testing.T) {
	store := NewMemStore()
	_ = store.Save("tok")
	_ = store.Clear()
	_ = store.Clear()
	if store.ClearCalls != 2 {
		t.Errorf("ClearCalls = %d, want 2", store.ClearCalls)
	}
	if _, ok := store.Read(); ok {
		t.Error("Read() after Clear() should report absent")
	}
}
