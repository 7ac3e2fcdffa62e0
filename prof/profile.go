// Package prof collects coarse wall-clock timings of sampler phases.
package prof

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Entry is a single timing measurement.
type Entry struct {
	Label string
	Dur   time.Duration
}

var (
	mu     sync.Mutex
	record []Entry
)

// Track logs the duration since start under the given label. Meant to be
// deferred at the top of the phase being measured.
func Track(start time.Time, label string) {
	elapsed := time.Since(start)
	mu.Lock()
	record = append(record, Entry{Label: label, Dur: elapsed})
	mu.Unlock()
}

// SnapshotAndReset returns the collected entries and clears them.
func SnapshotAndReset() []Entry {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Entry, len(record))
	copy(out, record)
	record = nil
	return out
}

// Report writes per-label totals and call counts of the collected
// entries, then clears them.
func Report(w io.Writer) {
	entries := SnapshotAndReset()
	totals := make(map[string]time.Duration)
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if _, seen := totals[e.Label]; !seen {
			order = append(order, e.Label)
		}
		totals[e.Label] += e.Dur
		counts[e.Label]++
	}
	for _, label := range order {
		fmt.Fprintf(w, "%-20s %3dx  total %v\n", label, counts[label], totals[label])
	}
}
