package memory

import (
	"sync"
	"testing"

	"github.com/fraudguard-io/fraudguard/core"
)

// Interface compliance (compile-time assertion)
var _ core.AlertStore = (*InMemoryStore)(nil)

func TestInMemoryStore_RecordAndSearch(t *testing.T) {
	store := NewInMemoryStore()

	for i := 0; i < 3; i++ {
		if err := store.Record("4111", core.Alert{Likelihood: 0.8, Reason: "velocity"}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	res, err := store.Search("4111", 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(res))
	}
	for _, alert := range res {
		if alert.ID == "" || alert.Timestamp.IsZero() || alert.CardNumber != "4111" {
			t.Fatalf("expected normalized alert, got %#v", alert)
		}
	}

	// limit returns the most recent entries
	limited, _ := store.Search("4111", 2)
	if len(limited) != 2 {
		t.Fatalf("expected 2 limited alerts, got %d", len(limited))
	}

	// unknown card yields an empty result, not an error
	none, err := store.Search("5500", 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty history, got %v %v", none, err)
	}
}

func TestInMemoryStore_RecordEmptyCard(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Record("", core.Alert{}); err == nil {
		t.Fatalf("expected empty card number to fail")
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Record("4111", core.Alert{Reason: "velocity"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	res, _ := store.Search("4111", 1)
	if err := store.Delete("4111", res[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	left, _ := store.Search("4111", 0)
	if len(left) != 0 {
		t.Fatalf("expected empty history after delete, got %d", len(left))
	}

	if err := store.Delete("4111", "does_not_exist"); err == nil {
		t.Fatalf("expected error deleting nonexistent alert")
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Record("4111", core.Alert{Reason: "velocity"})
			_, _ = store.Search("4111", 5)
		}()
	}
	wg.Wait()

	res, _ := store.Search("4111", 0)
	if len(res) != 10 {
		t.Fatalf("expected 10 alerts, got %d", len(res))
	}
}
