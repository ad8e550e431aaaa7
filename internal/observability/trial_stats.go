// Package observability tracks timing trials executed during a run for
// progress and end-of-run summary logging.
package observability

import (
	"sort"
	"sync"
	"time"
)

// TrialStats accumulates timed trials per entity and query kind.
type TrialStats struct {
	mu     sync.RWMutex
	series map[seriesKey]*SeriesStats
}

type seriesKey struct {
	entity string
	kind   string
}

// SeriesStats holds the trials recorded for one entity and query kind.
type SeriesStats struct {
	Entity   string
	Kind     string
	Trials   int64
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
	LastSeen time.Time
}

// Mean returns the average trial duration.
func (s SeriesStats) Mean() time.Duration {
	if s.Trials == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Trials)
}

// NewTrialStats creates an empty tracker.
func NewTrialStats() *TrialStats {
	return &TrialStats{
		series: make(map[seriesKey]*SeriesStats),
	}
}

// Record adds one trial of kind on entity.
// This method is O(1) and thread-safe.
func (t *TrialStats) Record(entity, kind string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := seriesKey{entity: entity, kind: kind}
	s, exists := t.series[key]
	if !exists {
		s = &SeriesStats{
			Entity: entity,
			Kind:   kind,
			Min:    elapsed,
			Max:    elapsed,
		}
		t.series[key] = s
	}

	s.Trials++
	s.Total += elapsed
	if elapsed < s.Min {
		s.Min = elapsed
	}
	if elapsed > s.Max {
		s.Max = elapsed
	}
	s.LastSeen = time.Now()
}

// Get returns a copy of the series for entity and kind.
func (t *TrialStats) Get(entity, kind string) (SeriesStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.series[seriesKey{entity: entity, kind: kind}]
	if !ok {
		return SeriesStats{}, false
	}
	return *s, true
}

// TotalTrials returns the number of trials recorded across all series.
func (t *TrialStats) TotalTrials() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var n int64
	for _, s := range t.series {
		n += s.Trials
	}
	return n
}

// Summary returns copies of every series sorted by entity, then kind.
func (t *TrialStats) Summary() []SeriesStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]SeriesStats, 0, len(t.series))
	for _, s := range t.series {
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

