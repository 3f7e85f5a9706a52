// Package performance aggregates sampled browser performance counters.
package performance

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Series tracks samples of named performance counters over time.
type Series struct {
	mu        sync.RWMutex
	samples   map[string][]float64
	last      map[string]float64
	startTime time.Time
}

// NewSeries creates an empty series.
func NewSeries() *Series {
	return &Series{
		samples:   make(map[string][]float64),
		last:      make(map[string]float64),
		startTime: time.Now(),
	}
}

// Track records one sample of a counter.
func (s *Series) Track(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[name] = append(s.samples[name], value)
	s.last[name] = value
}

// TrackAll records one sample of every counter in values.
func (s *Series) TrackAll(values map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, value := range values {
		s.samples[name] = append(s.samples[name], value)
		s.last[name] = value
	}
}

// Latest returns the most recent sample of every counter.
func (s *Series) Latest() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.last))
	for k, v := range s.last {
		out[k] = v
	}
	return out
}

// Stats holds the aggregate of one counter's samples.
type Stats struct {
	Count int64
	Min   float64
	Max   float64
	Mean  float64
	Last  float64
	P50   float64
	P95   float64
	P99   float64
}

// GetStats returns aggregated statistics per counter.
func (s *Series) GetStats() map[string]Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]Stats, len(s.samples))
	for name, values := range s.samples {
		if len(values) == 0 {
			continue
		}

		total := 0.0
		min, max := values[0], values[0]
		for _, v := range values {
			total += v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}

		p50, p95, p99 := calculatePercentiles(values)
		stats[name] = Stats{
			Count: int64(len(values)),
			Min:   min,
			Max:   max,
			Mean:  total / float64(len(values)),
			Last:  values[len(values)-1],
			P50:   p50,
			P95:   p95,
			P99:   p99,
		}
	}
	return stats
}

// Uptime returns how long the series has been collecting.
func (s *Series) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Reset clears all samples.
func (s *Series) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = make(map[string][]float64)
	s.last = make(map[string]float64)
	s.startTime = time.Now()
}

// calculatePercentiles returns nearest-rank p50, p95 and p99.
func calculatePercentiles(values []float64) (float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	at := func(q float64) float64 {
		idx := int(float64(len(sorted)) * q)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return at(0.50), at(0.95), at(0.99)
}

// FormatStats formats counter stats for display, sorted by name.
func FormatStats(stats map[string]Stats) string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		s := stats[name]
		sb.WriteString(fmt.Sprintf("%s:\n", name))
		sb.WriteString(fmt.Sprintf("  Count: %d, Last: %g\n", s.Count, s.Last))
		sb.WriteString(fmt.Sprintf("  Mean: %g, Min: %g, Max: %g\n", s.Mean, s.Min, s.Max))
		sb.WriteString(fmt.Sprintf("  P50: %g, P95: %g, P99: %g\n", s.P50, s.P95, s.P99))
		sb.WriteString("\n")
	}
	return sb.String()
}
