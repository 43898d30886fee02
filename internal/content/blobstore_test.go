package content_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/periospot/content-cloud/internal/content"
)

func TestFSBlobStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store := content.NewFSBlobStore(dir, "https://periospot.com/")

	url, storagePath, err := store.Save(context.Background(), "uploads", "scan.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "https://periospot.com/images/uploads/scan.png" {
		t.Errorf("url = %q", url)
	}
	if storagePath != "uploads/scan.png" {
		t.Errorf("storagePath = %q", storagePath)
	}

	data, err := os.ReadFile(filepath.Join(dir, "uploads", "scan.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("stored bytes = %q", data)
	}

	if err := store.Remove(context.Background(), storagePath); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "scan.png")); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove")
	}
}

func TestFSBlobStore_RemoveMissingIsFine(t *testing.T) {
	store := content.NewFSBlobStore(t.TempDir(), "https://periospot.com")

	if err := store.Remove(context.Background(), "uploads/never-there.png"); err != nil {
		t.Errorf("Remove of missing file: %v", err)
	}
}

func TestFSBlobStore_StripsPathEscapes(t *testing.T) {
	dir := t.TempDir()
	store := content.NewFSBlobStore(dir, "https://periospot.com")

	_, storagePath, err := store.Save(context.Background(), "../outside", "..\\..\\evil.png", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if storagePath != "outside/evil.png" {
		t.Errorf("storagePath = %q, want cleaned outside/evil.png", storagePath)
	}
	if _, err := os.Stat(filepath.Join(dir, "outside", "evil.png")); err != nil {
		t.Errorf("expected file inside base dir: %v", err)
	}
}

func TestFSBlobStore_RequiresFilename(t *testing.T) {
	store := content.NewFSBlobStore(t.TempDir(), "https://periospot.com")

	if _, _, err := store.Save(context.Background(), "uploads", "", []byte("x")); err == nil {
		t.Fatal("expected error for empty filename")
	}
}
