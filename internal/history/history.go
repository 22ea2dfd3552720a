// Package history holds the per-session list of past predictions shown on the
// history view. Entries live only in memory; deleting one removes it from the
// owning list and nowhere else.
package history

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Inputs are the atmospheric conditions recorded with a sample entry
type Inputs struct {
	Humidity  float64 `json:"humidity"`
	Pressure  float64 `json:"pressure"`
	WindSpeed float64 `json:"windSpeed"`
}

// Entry is one past prediction
type Entry struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Inputs    Inputs    `json:"inputs"`
	Result    float64   `json:"result"`
}

// Summary aggregates the results of a list
type Summary struct {
	Total          int     `json:"total"`
	AvgTemperature float64 `json:"avg_temperature"`
	MinTemperature float64 `json:"min_temperature"`
	MaxTemperature float64 `json:"max_temperature"`
	StdDev         float64 `json:"stddev"`
}

func sampleTime(day, hour, minute int) time.Time {
	return time.Date(2024, time.December, day, hour, minute, 0, 0, time.UTC)
}

// SampleEntries returns a fresh copy of the canned history
func SampleEntries() []Entry {
	return []Entry{
		{ID: 1, Timestamp: sampleTime(24, 14, 30), Inputs: Inputs{Humidity: 65, Pressure: 1013, WindSpeed: 15}, Result: 24.5},
		{ID: 2, Timestamp: sampleTime(24, 12, 15), Inputs: Inputs{Humidity: 70, Pressure: 1015, WindSpeed: 12}, Result: 22.8},
		{ID: 3, Timestamp: sampleTime(24, 9, 45), Inputs: Inputs{Humidity: 75, Pressure: 1012, WindSpeed: 18}, Result: 20.3},
		{ID: 4, Timestamp: sampleTime(23, 16, 20), Inputs: Inputs{Humidity: 60, Pressure: 1014, WindSpeed: 10}, Result: 26.1},
		{ID: 5, Timestamp: sampleTime(23, 11, 10), Inputs: Inputs{Humidity: 68, Pressure: 1016, WindSpeed: 14}, Result: 23.7},
		{ID: 6, Timestamp: sampleTime(23, 8, 0), Inputs: Inputs{Humidity: 72, Pressure: 1013, WindSpeed: 16}, Result: 21.4},
	}
}

// List is a concurrency-safe in-memory history
type List struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewList creates a list holding entries
func NewList(entries []Entry) *List {
	l := &List{entries: make([]Entry, len(entries))}
	copy(l.entries, entries)
	return l
}

// NewSampleList creates a list seeded with SampleEntries
func NewSampleList() *List {
	return NewList(SampleEntries())
}

// Entries returns a copy of the entries, newest first
func (l *List) Entries() []Entry {
	l.mu.RLock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Len returns the number of entries
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Delete removes the entry with id. It reports whether an entry was removed.
func (l *List) Delete(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Summary computes aggregate statistics over the current entries
func (l *List) Summary() Summary {
	l.mu.RLock()
	results := make([]float64, len(l.entries))
	for i, e := range l.entries {
		results[i] = e.Result
	}
	l.mu.RUnlock()

	s := Summary{Total: len(results)}
	if len(results) == 0 {
		return s
	}

	s.AvgTemperature = round1(stat.Mean(results, nil))
	s.MinTemperature = floats.Min(results)
	s.MaxTemperature = floats.Max(results)
	if len(results) > 1 {
		s.StdDev = round1(stat.StdDev(results, nil))
	}
	return s
}

func round1(v float64) float64 {
	return scalar.Round(v, 1)
}
