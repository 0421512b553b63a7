// Package profile implements per-function call and time accounting
// for hot-spot selection. The coordinator polls hot spots between
// top-level source units, not inside tight loops, so profiling
// overhead stays bounded.
package profile

import (
	"sort"
	"time"
)

// Default hot-spot thresholds.
const (
	// DefaultHotFrac is the share of total execution time a function
	// must reach to count as hot.
	DefaultHotFrac = 0.05
	// DefaultHotCallMin is the call count a function must exceed to
	// count as hot.
	DefaultHotCallMin = 1000
)

// FunctionStats accumulates timing for one function.
type FunctionStats struct {
	Name      string
	CallCount uint64
	Total     time.Duration
	Min       time.Duration
	Max       time.Duration
}

// Mean returns the mean call duration.
func (fs *FunctionStats) Mean() time.Duration {
	if fs.CallCount == 0 {
		return 0
	}
	return fs.Total / time.Duration(fs.CallCount)
}

// Profiler maintains per-function statistics from a monotonic clock.
// Enter/Exit calls nest with the script call stack.
type Profiler struct {
	stats map[string]*FunctionStats
	// starts is a stack of enter timestamps, one per live frame.
	starts []entry
	now    func() time.Time
}

type entry struct {
	name  string
	start time.Time
}

// New creates an empty profiler.
func New() *Profiler {
	return &Profiler{
		stats: make(map[string]*FunctionStats),
		now:   time.Now,
	}
}

// Enter stamps the monotonic clock for a function entry.
func (p *Profiler) Enter(name string) {
	p.starts = append(p.starts, entry{name: name, start: p.now()})
}

// Exit computes the duration since the matching Enter and folds it
// into the function's statistics.
func (p *Profiler) Exit(name string) {
	if len(p.starts) == 0 {
		return
	}
	top := p.starts[len(p.starts)-1]
	p.starts = p.starts[:len(p.starts)-1]
	if top.name != name {
		// Mismatched exit; drop the frame rather than corrupt stats.
		return
	}
	elapsed := p.now().Sub(top.start)

	fs, ok := p.stats[name]
	if !ok {
		fs = &FunctionStats{Name: name, Min: elapsed, Max: elapsed}
		p.stats[name] = fs
	}
	fs.CallCount++
	fs.Total += elapsed
	if elapsed < fs.Min || fs.CallCount == 1 {
		fs.Min = elapsed
	}
	if elapsed > fs.Max {
		fs.Max = elapsed
	}
}

// CallCount returns the recorded call count for a function.
func (p *Profiler) CallCount(name string) uint64 {
	if fs, ok := p.stats[name]; ok {
		return fs.CallCount
	}
	return 0
}

// Stats returns the statistics for a function, or nil.
func (p *Profiler) Stats(name string) *FunctionStats {
	return p.stats[name]
}

// TotalTime returns the summed execution time across all functions.
func (p *Profiler) TotalTime() time.Duration {
	var total time.Duration
	for _, fs := range p.stats {
		total += fs.Total
	}
	return total
}

// HotSpots returns the functions whose share of total execution time
// reaches fracThreshold and whose call count exceeds callMin, hottest
// first.
func (p *Profiler) HotSpots(fracThreshold float64, callMin uint64) []*FunctionStats {
	total := p.TotalTime()
	if total == 0 {
		return nil
	}

	var hot []*FunctionStats
	for _, fs := range p.stats {
		if fs.CallCount <= callMin {
			continue
		}
		if float64(fs.Total)/float64(total) >= fracThreshold {
			hot = append(hot, fs)
		}
	}
	sort.Slice(hot, func(a, b int) bool {
		return hot[a].Total > hot[b].Total
	})
	return hot
}

// Snapshot returns all per-function statistics, sorted by total time
// descending.
func (p *Profiler) Snapshot() []*FunctionStats {
	out := make([]*FunctionStats, 0, len(p.stats))
	for _, fs := range p.stats {
		out = append(out, fs)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Total > out[b].Total
	})
	return out
}
