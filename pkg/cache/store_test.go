package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, ok, err := s.Get(ctx, "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a hit")
	}
	if string(value) != "value" {
		t.Fatalf("expected %q, got %q", "value", value)
	}
}

func TestMemoryStore_ExpiredEntryNotReturned(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "key", []byte("value"), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected expired entry to be absent")
	}
}

func TestMemoryStore_DeleteRemovesEntry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Set(ctx, "key", []byte("value"), time.Minute)
	if err := s.Delete(ctx, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ok, _ := s.Get(ctx, "key")
	if ok {
		t.Fatalf("expected deleted entry to be absent")
	}
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Set(ctx, "key", []byte("value"), 0)
	time.Sleep(2 * time.Millisecond)

	_, ok, _ := s.Get(ctx, "key")
	if !ok {
		t.Fatalf("expected a zero-TTL entry to persist")
	}
}
