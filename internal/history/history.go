// Package history keeps a bounded in-memory record of tool dispatches.
// The store is process-local on purpose: it powers the read-only
// history endpoints and the status summary without persisting anything.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/stats"
)

const (
	// DefaultCapacity bounds the ring; the oldest entry is evicted once
	// the ring is full.
	DefaultCapacity = 100
	// DefaultLimit is how many entries Recent returns when the caller
	// does not say.
	DefaultLimit = 20

	timestampLayout = "2006-01-02 15:04:05"
)

// Entry is one recorded dispatch.
type Entry struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`
	Tool            string  `json:"tool"`
	Query           string  `json:"query,omitempty"`
	QueryType       string  `json:"query_type,omitempty"`
	GeneratedSQL    string  `json:"generated_sql,omitempty"`
	ResultCount     int     `json:"result_count"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
	Success         bool    `json:"success"`
	Error           string  `json:"error,omitempty"`
}

// Stats aggregates the ring. Execution times cover successful entries
// only, so one failing burst does not skew the latency numbers.
type Stats struct {
	TotalQueries   int            `json:"total_queries"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	ByTool         map[string]int `json:"by_tool,omitempty"`
	AvgExecutionMS float64        `json:"avg_execution_ms"`
	MaxExecutionMS float64        `json:"max_execution_ms"`
	MinExecutionMS float64        `json:"min_execution_ms"`
	SuccessRatePct float64        `json:"success_rate_pct"`
}

// Store is what the dispatcher records into and the HTTP surface reads
// from. Implementations must be safe for concurrent use.
type Store interface {
	Record(entry Entry)
	Recent(limit int) []Entry
	Stats() Stats
	Clear()
}

// RingStore is the in-memory Store with fixed capacity and oldest-first
// eviction.
type RingStore struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int

	now   func() time.Time
	newID func() string
}

func NewRingStore(capacity int) *RingStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingStore{
		capacity: capacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Record stamps the entry with an ID and timestamp when the caller left
// them empty and appends it, evicting the oldest entry at capacity.
func (s *RingStore) Record(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = s.now().Format(timestampLayout)
	}
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		evicted := len(s.entries) - s.capacity
		s.entries = append([]Entry(nil), s.entries[evicted:]...)
		for i := 0; i < evicted; i++ {
			observability.IncrementHistoryEviction()
		}
	}
}

// Recent returns up to limit entries, newest first.
func (s *RingStore) Recent(limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.entries)
	if limit < count {
		count = limit
	}
	out := make([]Entry, 0, count)
	for i := len(s.entries) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

func (s *RingStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Stats{}
	}

	byTool := make(map[string]int)
	var times []float64
	failed := 0
	for _, entry := range s.entries {
		byTool[entry.Tool]++
		if entry.Success {
			times = append(times, entry.ExecutionTimeMS)
		} else {
			failed++
		}
	}

	result := Stats{
		TotalQueries: len(s.entries),
		Successful:   len(s.entries) - failed,
		Failed:       failed,
		ByTool:       byTool,
	}
	result.SuccessRatePct = stats.Round(float64(result.Successful)/float64(result.TotalQueries)*100, 2)
	if len(times) > 0 {
		min, max, sum := times[0], times[0], 0.0
		for _, t := range times {
			if t < min {
				min = t
			}
			if t > max {
				max = t
			}
			sum += t
		}
		result.AvgExecutionMS = stats.Round(sum/float64(len(times)), 2)
		result.MaxExecutionMS = stats.Round(max, 2)
		result.MinExecutionMS = stats.Round(min, 2)
	}
	return result
}

func (s *RingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
