package room

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/devaloi/chatrooms/internal/domain"
	"github.com/devaloi/chatrooms/internal/store"
	"github.com/devaloi/chatrooms/internal/testutil"
)

func newTestLog(t *testing.T, max int) *CappedLog {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewCappedLog(s, "test:messages", max)
}

func testMessage(t *testing.T, i int) domain.Message {
	t.Helper()
	msg, err := domain.NewMessage("alice", float64(i), "text", fmt.Sprintf("msg-%d", i))
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

func TestCappedLogAddAndItems(t *testing.T) {
	t.Parallel()
	log := newTestLog(t, 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		length, err := log.Add(ctx, testMessage(t, i))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if length != int64(i) {
			t.Errorf("add %d: length %d, want %d", i, length, i)
		}
	}

	items, err := log.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	// Most recently added first.
	if items[0].Message != "msg-3" || items[2].Message != "msg-1" {
		t.Errorf("wrong order: %+v", items)
	}
}

func TestCappedLogEvictsOldest(t *testing.T) {
	t.Parallel()
	log := newTestLog(t, 5)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		length, err := log.Add(ctx, testMessage(t, i))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if i > 5 && length != 5 {
			t.Errorf("add %d: length %d, want capacity 5", i, length)
		}
	}

	items, err := log.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items at capacity, got %d", len(items))
	}
	if items[0].Message != "msg-8" {
		t.Errorf("expected newest item first, got %s", items[0].Message)
	}
	if items[4].Message != "msg-4" {
		t.Errorf("expected oldest surviving item last, got %s", items[4].Message)
	}
}

func TestCappedLogEmptyItems(t *testing.T) {
	t.Parallel()
	log := newTestLog(t, 5)

	items, err := log.Items(context.Background())
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty log, got %d items", len(items))
	}
}

func TestCappedLogStoreFailure(t *testing.T) {
	t.Parallel()
	storeErr := errors.New("store down")
	log := NewCappedLog(testutil.FailingStore{Err: storeErr}, "test:messages", 5)
	ctx := context.Background()

	if _, err := log.Items(ctx); !errors.Is(err, storeErr) {
		t.Errorf("items: expected store error, got %v", err)
	}
	if _, err := log.Add(ctx, testMessage(t, 1)); !errors.Is(err, storeErr) {
		t.Errorf("add: expected store error, got %v", err)
	}
}
