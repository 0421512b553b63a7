// Package ic implements per-call-site polymorphic inline caches.
//
// Every dynamic dispatch site (call, member access, index) is assigned
// an integer site ID at parse time. The cache records which operand
// types were observed at each site and what they dispatched to,
// driving a state machine from Uninit through Mono and Poly to Mega.
// Hit statistics feed the JIT's inlining and guard decisions.
package ic

import (
	"fmt"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// PolyMax is the maximum number of distinct type entries a site holds
// before collapsing to the megamorphic state.
const PolyMax = 8

// TypeKey is the stable per-type key a cache entry is indexed by. It
// is derived from runtime.Kind rather than a hash of type pointers so
// lookups stay branchless on the common path.
type TypeKey int

// KeyFor derives the type key for an operand value.
func KeyFor(kind runtime.Kind) TypeKey { return TypeKey(kind) }

// State is the cache state of a single site.
type State int

const (
	// Uninit means no dispatch has been observed.
	Uninit State = iota
	// Mono means exactly one operand type has been observed.
	Mono
	// Poly means between two and PolyMax types have been observed.
	Poly
	// Mega means more than PolyMax types were observed; caching is
	// disabled at the site and every lookup misses.
	Mega
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case Mono:
		return "mono"
	case Poly:
		return "poly"
	case Mega:
		return "mega"
	}
	return "unknown"
}

// entry is one observed (type, target) pair with its hit count.
type entry struct {
	key    TypeKey
	target runtime.Value
	hits   uint64
}

// Site is the cache for a single dispatch site. Entries live in a
// fixed-size inline array so Poly lookups stay a short linear scan.
type Site struct {
	ID         ast.SiteID
	MethodName string
	state      State
	entries    [PolyMax]entry
	used       int
	hits       uint64
	misses     uint64
}

// State returns the site's cache state.
func (s *Site) State() State { return s.state }

// Hits and Misses return the site's totals.
func (s *Site) Hits() uint64   { return s.hits }
func (s *Site) Misses() uint64 { return s.misses }

// Lookup consults the site for a previously recorded target: O(1) on
// Mono, a bounded linear scan on Poly, and always a miss on Mega.
func (s *Site) Lookup(key TypeKey) (runtime.Value, bool) {
	switch s.state {
	case Mono:
		if s.entries[0].key == key {
			s.entries[0].hits++
			s.hits++
			return s.entries[0].target, true
		}
	case Poly:
		for idx := 0; idx < s.used; idx++ {
			if s.entries[idx].key == key {
				s.entries[idx].hits++
				s.hits++
				return s.entries[idx].target, true
			}
		}
	}
	s.misses++
	return nil, false
}

// Update records a dispatch outcome and drives the state machine:
// Uninit becomes Mono on the first observation; a new type at a Mono
// site produces Poly with both entries; exceeding PolyMax collapses
// to Mega and stops recording.
func (s *Site) Update(key TypeKey, target runtime.Value) {
	if s.state == Mega {
		return
	}
	for idx := 0; idx < s.used; idx++ {
		if s.entries[idx].key == key {
			s.entries[idx].target = target
			return
		}
	}
	if s.used == PolyMax {
		s.state = Mega
		s.used = 0
		return
	}
	s.entries[s.used] = entry{key: key, target: target}
	s.used++
	switch s.used {
	case 1:
		s.state = Mono
	default:
		s.state = Poly
	}
}

// reset returns the site to Uninit, dropping entries and statistics
// kept per entry (site totals survive for reporting).
func (s *Site) reset() {
	s.state = Uninit
	s.used = 0
	for idx := range s.entries {
		s.entries[idx] = entry{}
	}
}

// MonoTarget returns the single cached target of a Mono site.
func (s *Site) MonoTarget() (runtime.Value, TypeKey, bool) {
	if s.state != Mono {
		return nil, 0, false
	}
	return s.entries[0].target, s.entries[0].key, true
}

// Manager owns the caches for every site of a program. Sites are laid
// out in a dense slice indexed by site ID, matching the parser's
// sequential numbering.
type Manager struct {
	sites []Site
}

// NewManager creates a manager for a program with the given number of
// parse-time sites.
func NewManager(siteCount int) *Manager {
	m := &Manager{sites: make([]Site, siteCount)}
	for idx := range m.sites {
		m.sites[idx].ID = ast.SiteID(idx)
	}
	return m
}

// Grow extends the site table to hold at least siteCount sites. The
// REPL grows the table as further inputs are parsed.
func (m *Manager) Grow(siteCount int) {
	for len(m.sites) < siteCount {
		m.sites = append(m.sites, Site{ID: ast.SiteID(len(m.sites))})
	}
}

// Site returns the cache for a site ID, or nil when out of range.
func (m *Manager) Site(id ast.SiteID) *Site {
	if id < 0 || int(id) >= len(m.sites) {
		return nil
	}
	return &m.sites[id]
}

// Lookup consults the cache for a site.
func (m *Manager) Lookup(id ast.SiteID, key TypeKey) (runtime.Value, bool) {
	site := m.Site(id)
	if site == nil {
		return nil, false
	}
	return site.Lookup(key)
}

// Update records a dispatch at a site.
func (m *Manager) Update(id ast.SiteID, key TypeKey, target runtime.Value) {
	if site := m.Site(id); site != nil {
		site.Update(key, target)
	}
}

// Invalidate resets one site to Uninit.
func (m *Manager) Invalidate(id ast.SiteID) {
	if site := m.Site(id); site != nil {
		site.reset()
	}
}

// InvalidateMethod resets every site recorded under a method name,
// e.g. after a module rebind changes what the name dispatches to.
func (m *Manager) InvalidateMethod(name string) {
	for idx := range m.sites {
		if m.sites[idx].MethodName == name {
			m.sites[idx].reset()
		}
	}
}

// InvalidateAll resets every site. The coordinator calls this on
// deoptimization so stale targets cannot be reused.
func (m *Manager) InvalidateAll() {
	for idx := range m.sites {
		m.sites[idx].reset()
	}
}

// InliningCandidates returns the site IDs that look profitable to
// inline: Mono sites whose hit count reaches minHits. Mega sites are
// never candidates.
func (m *Manager) InliningCandidates(minHits uint64) []ast.SiteID {
	var out []ast.SiteID
	for idx := range m.sites {
		site := &m.sites[idx]
		if site.state == Mono && site.hits >= minHits {
			out = append(out, site.ID)
		}
	}
	return out
}

// Stats summarizes one site for the engine's metrics surface.
type Stats struct {
	ID     ast.SiteID
	State  State
	Types  int
	Hits   uint64
	Misses uint64
}

// String formats the stats for debug output.
func (st Stats) String() string {
	return fmt.Sprintf("site %d: %s (%d types, %d hits, %d misses)",
		st.ID, st.State, st.Types, st.Hits, st.Misses)
}

// Snapshot returns per-site statistics for all sites.
func (m *Manager) Snapshot() []Stats {
	out := make([]Stats, len(m.sites))
	for idx := range m.sites {
		s := &m.sites[idx]
		out[idx] = Stats{ID: s.ID, State: s.state, Types: s.used, Hits: s.hits, Misses: s.misses}
	}
	return out
}
