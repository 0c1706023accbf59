package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSetNXAndGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.SetNX(ctx, "k", []byte("v1"), time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if !created {
		t.Fatal("expected first setnx to create")
	}

	// Second write must not overwrite.
	created, err = s.SetNX(ctx, "k", []byte("v2"), time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if created {
		t.Error("expected second setnx to be rejected")
	}

	value, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(value) != "v1" {
		t.Errorf("got %q ok=%v, want v1", value, ok)
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestSQLiteExpiredKeyReadsAsAbsent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SetNX(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected expired key to read as absent")
	}

	// An expired key must be creatable again.
	created, err := s.SetNX(ctx, "k", []byte("v2"), time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if !created {
		t.Error("expected setnx to succeed over an expired key")
	}
}

func TestSQLiteExpire(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SetNX(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	refreshed, err := s.Expire(ctx, "k", time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !refreshed {
		t.Error("expected refresh of live key to succeed")
	}

	refreshed, err = s.Expire(ctx, "missing", time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if refreshed {
		t.Error("expected refresh of missing key to report false")
	}
}

func TestSQLitePushCapped(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		length, err := s.PushCapped(ctx, "list", []byte(fmt.Sprintf("item-%d", i)), 5)
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		want := int64(i + 1)
		if want > 5 {
			want = 5
		}
		if length != want {
			t.Errorf("push %d: length %d, want %d", i, length, want)
		}
	}

	values, err := s.List(ctx, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(values) != 5 {
		t.Fatalf("expected 5 items, got %d", len(values))
	}
	// Newest first; the two oldest items were evicted.
	if string(values[0]) != "item-6" {
		t.Errorf("expected item-6 first, got %s", values[0])
	}
	if string(values[4]) != "item-2" {
		t.Errorf("expected item-2 last, got %s", values[4])
	}
}

func TestSQLiteListEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	values, err := s.List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty list, got %d items", len(values))
	}
}

func TestSQLiteListIsolation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	s.PushCapped(ctx, "a", []byte("1"), 10)
	s.PushCapped(ctx, "b", []byte("2"), 10)

	va, _ := s.List(ctx, "a")
	vb, _ := s.List(ctx, "b")
	if len(va) != 1 || len(vb) != 1 {
		t.Errorf("expected 1 item per list, got a=%d b=%d", len(va), len(vb))
	}
}
