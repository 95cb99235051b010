package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorage_PutGet(t *testing.T) {
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	objectPath := "partitions/run-1/S.txt"
	content := "Smith John Allan 555-1234\n"

	if err := storage.Put(ctx, objectPath, strings.NewReader(content)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var buf bytes.Buffer
	if err := storage.Get(ctx, objectPath, &buf); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if buf.String() != content {
		t.Errorf("content mismatch: got %q, want %q", buf.String(), content)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Join(baseDir, "partitions", "run-1"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file, got %d", len(entries))
	}
}

func TestLocalStorage_PutRewindsBody(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	body := strings.NewReader("payload")
	// Simulate a body already consumed by an earlier attempt
	body.Seek(0, 2)

	if err := storage.Put(ctx, "obj", body); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var buf bytes.Buffer
	if err := storage.Get(ctx, "obj", &buf); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if buf.String() != "payload" {
		t.Errorf("got %q, want payload", buf.String())
	}
}

func TestLocalStorage_GetNotFound(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	var buf bytes.Buffer
	if err := storage.Get(context.Background(), "missing", &buf); err != ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_List(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	ctx := context.Background()

	for _, p := range []string{"p/r1/S.txt", "p/r1/J.txt", "p/r2/S.txt", "other/x"} {
		if err := storage.Put(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatalf("Put %s failed: %v", p, err)
		}
	}

	objects, err := storage.List(ctx, "p/r1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"p/r1/J.txt", "p/r1/S.txt"}
	if len(objects) != len(want) {
		t.Fatalf("got %v, want %v", objects, want)
	}
	for i := range want {
		if objects[i] != want[i] {
			t.Errorf("objects[%d] = %q, want %q", i, objects[i], want[i])
		}
	}

	empty, err := storage.List(ctx, "nope")
	if err != nil {
		t.Fatalf("List of missing prefix failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty list, got %v", empty)
	}
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := storage.Put(ctx, "obj", strings.NewReader("x")); err == nil {
		t.Error("expected error for canceled context")
	}
}
