package ledger

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func TestBoltBlobStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Absent key reads as nil without error.
	data, err := store.Read(ctx, "missing")
	if err != nil {
		t.Fatalf("Read of missing key failed: %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil for a missing key, got %v", data)
	}

	payload := []byte(`[{"key":"abc","product":{}}]`)
	if err := store.Write(ctx, blobKey, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := store.Read(ctx, blobKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read returned %q, want %q", got, payload)
	}
}

func TestBoltBlobStoreOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Write(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Write(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, _ := store.Read(ctx, "k")
	if string(got) != "second" {
		t.Errorf("Expected last write to win, got %q", got)
	}
}

func TestBoltBlobStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	if err := store.Write(ctx, "k", []byte("durable")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Read(ctx, "k")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "durable" {
		t.Errorf("Blob lost across reopen: got %q", got)
	}
}
