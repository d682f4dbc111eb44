package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckLocalFilesystemAllowsLocal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	err := checkLocalFilesystemWith(path, func(string) (string, error) { return "ext4", nil })
	if err != nil {
		t.Fatalf("expected local filesystem to pass, got: %v", err)
	}
}

func TestCheckLocalFilesystemRejectsNetwork(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	err := checkLocalFilesystemWith(path, func(string) (string, error) { return "NFS", nil })
	if err == nil {
		t.Fatal("expected network filesystem error")
	}
	if !strings.Contains(err.Error(), "journal.path") {
		t.Fatalf("expected hint about journal.path, got %q", err)
	}
}

func TestCheckLocalFilesystemInspectsNearestParent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var inspected string
	err := checkLocalFilesystemWith(filepath.Join(root, "a", "b", "journal.db"), func(p string) (string, error) {
		inspected = p
		return "ext4", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if inspected != root {
		t.Fatalf("expected %q to be inspected, got %q", root, inspected)
	}
}

func TestCheckLocalFilesystemUnknownPasses(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	if err := checkLocalFilesystemWith(path, func(string) (string, error) { return "", errFSUnknown }); err != nil {
		t.Fatalf("unknown filesystem should pass, got %v", err)
	}
	if err := checkLocalFilesystemWith(path, func(string) (string, error) { return "", errors.New("io") }); err == nil {
		t.Fatal("detector failure should surface")
	}
}
