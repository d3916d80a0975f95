package session

import (
	"context"
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	s := New("flyer", 0)
	if s.ID == "" {
		t.Error("session should get an id")
	}
	if s.TemplateID != "flyer" {
		t.Errorf("TemplateID = %q, want flyer", s.TemplateID)
	}
	if s.Status != "idle" {
		t.Errorf("Status = %q, want idle", s.Status)
	}
	if s.IsExpired() {
		t.Error("fresh session should not be expired")
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != DefaultTTL {
		t.Errorf("ttl = %v, want %v", got, DefaultTTL)
	}
}

func TestClearDataKeepsHistory(t *testing.T) {
	s := New("flyer", 0)
	s.Data["zones"] = "zones:abc"
	s.Stages["template"] = "complete"
	s.Record("template", "zones computed")

	s.ClearData()

	if len(s.Data) != 0 || len(s.Stages) != 0 {
		t.Error("ClearData must clear data and stages")
	}
	if len(s.History) != 1 {
		t.Error("ClearData must preserve history")
	}
}

func runStoreTests(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if got, err := store.Get(ctx, "missing"); err != nil || got != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", got, err)
	}

	s := New("flyer", time.Hour)
	s.Data["zones"] = "zones:abc"
	if err := store.Set(ctx, s); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.TemplateID != "flyer" || got.Data["zones"] != "zones:abc" {
		t.Errorf("Get() = %+v, want stored session", got)
	}

	// Expired sessions vanish.
	old := New("flyer", time.Hour)
	old.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Set(ctx, old); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := store.Get(ctx, old.ID); got != nil {
		t.Error("expired session should read as missing")
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Get(ctx, s.ID); got != nil {
		t.Error("deleted session should be gone")
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	runStoreTests(t, store)
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := New("flyer", time.Hour)
	if err := store.Set(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.TemplateID = "mutated"

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TemplateID != "flyer" {
		t.Error("store must not share memory with the caller")
	}
}
