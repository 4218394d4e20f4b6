package observ

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stats accumulates call counts and durations per key. Safe for concurrent use.
type Stats struct {
	mu    sync.Mutex
	items map[string]*stat
}

type stat struct {
	calls int
	total time.Duration
	max   time.Duration
}

func NewStats() *Stats {
	return &Stats{items: make(map[string]*stat)}
}

// Observe records one call of key taking d.
func (s *Stats) Observe(key string, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	st, ok := s.items[key]
	if !ok {
		st = &stat{}
		s.items[key] = st
	}
	st.calls++
	st.total += d
	if d > st.max {
		st.max = d
	}
	s.mu.Unlock()
}

// StatReport is one row of a Stats report.
type StatReport struct {
	Key     string  `json:"rule_id"`
	Calls   int     `json:"calls"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// Report returns rows sorted by total time, slowest first, ties by key.
func (s *Stats) Report() []StatReport {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatReport, 0, len(s.items))
	for k, st := range s.items {
		out = append(out, StatReport{Key: k, Calls: st.calls, TotalMS: Millis(st.total), MaxMS: Millis(st.max)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMS != out[j].TotalMS {
			return out[i].TotalMS > out[j].TotalMS
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Top renders the n slowest keys; n <= 0 renders all.
func (s *Stats) Top(n int) string {
	rows := s.Report()
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-40s %7.2f ms  %6d calls\n", r.Key, r.TotalMS, r.Calls)
	}
	return b.String()
}
