package history

import (
	"fmt"
	"testing"
	"time"
)

func newTestStore(capacity int) *RingStore {
	store := NewRingStore(capacity)
	serial := 0
	store.newID = func() string {
		serial++
		return fmt.Sprintf("id-%d", serial)
	}
	store.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return store
}

func TestRecordStampsEntries(t *testing.T) {
	store := newTestStore(10)
	store.Record(Entry{Tool: "execute-query", Success: true})

	entries := store.Recent(0)
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].ID != "id-1" {
		t.Fatalf("id = %q", entries[0].ID)
	}
	if entries[0].Timestamp != "2024-06-01 12:00:00" {
		t.Fatalf("timestamp = %q", entries[0].Timestamp)
	}
}

func TestRecentNewestFirstWithLimit(t *testing.T) {
	store := newTestStore(10)
	for i := 1; i <= 5; i++ {
		store.Record(Entry{Tool: "execute-query", Query: fmt.Sprintf("q%d", i), Success: true})
	}

	entries := store.Recent(3)
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Query != "q5" || entries[2].Query != "q3" {
		t.Fatalf("order = %q, %q, %q", entries[0].Query, entries[1].Query, entries[2].Query)
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	store := newTestStore(3)
	for i := 1; i <= 5; i++ {
		store.Record(Entry{Tool: "execute-query", Query: fmt.Sprintf("q%d", i), Success: true})
	}

	entries := store.Recent(10)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want capacity 3", len(entries))
	}
	if entries[0].Query != "q5" || entries[2].Query != "q3" {
		t.Fatalf("oldest entries should be evicted, got %q..%q", entries[0].Query, entries[2].Query)
	}
}

func TestStatsAggregation(t *testing.T) {
	store := newTestStore(10)
	store.Record(Entry{Tool: "execute-query", ExecutionTimeMS: 10, Success: true})
	store.Record(Entry{Tool: "execute-query", ExecutionTimeMS: 30, Success: true})
	store.Record(Entry{Tool: "analyze-table", ExecutionTimeMS: 99, Success: false, Error: "boom"})

	stats := store.Stats()
	if stats.TotalQueries != 3 || stats.Successful != 2 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.AvgExecutionMS != 20 || stats.MaxExecutionMS != 30 || stats.MinExecutionMS != 10 {
		t.Fatalf("failed entries should not count toward latency: %+v", stats)
	}
	if stats.SuccessRatePct != 66.67 {
		t.Fatalf("success rate = %v", stats.SuccessRatePct)
	}
	if stats.ByTool["execute-query"] != 2 || stats.ByTool["analyze-table"] != 1 {
		t.Fatalf("by tool = %+v", stats.ByTool)
	}
}

func TestStatsEmpty(t *testing.T) {
	store := newTestStore(10)

	stats := store.Stats()
	if stats.TotalQueries != 0 || stats.ByTool != nil {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(10)
	store.Record(Entry{Tool: "execute-query", Success: true})
	store.Clear()

	if entries := store.Recent(0); len(entries) != 0 {
		t.Fatalf("entries = %d after clear", len(entries))
	}
}
