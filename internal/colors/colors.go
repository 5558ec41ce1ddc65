// Package colors assigns host palette colors to select-field options.
//
// Two maps are kept per field: a fixed map the user pins through settings
// and an auto map filled on first use. A fixed assignment always wins.
// Auto assignment is deterministic: the lowest palette index not yet used
// for that field, wrapping index mod PaletteSize once all colors are
// taken. Both maps persist as their own state blobs; a failed save of
// the auto map is logged, not surfaced.
package colors

import (
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/statestore"
)

// PaletteSize is the number of color ids the host exposes (ids 1..14).
const PaletteSize = 14

// Assignments maps field name -> option value -> palette color id.
type Assignments map[string]map[string]int

// Manager resolves and records option colors.
type Manager struct {
	store *statestore.Store
	fixed Assignments
	auto  Assignments
}

// Load reads both color maps. Corrupt blobs load as empty maps.
func Load(store *statestore.Store) *Manager {
	m := &Manager{store: store, fixed: Assignments{}, auto: Assignments{}}
	if _, err := store.Load(statestore.BlobColorsFixed, &m.fixed); err != nil {
		debug.Logf("colors: discarding corrupt fixed map: %v", err)
		m.fixed = Assignments{}
	}
	if _, err := store.Load(statestore.BlobColorsAuto, &m.auto); err != nil {
		debug.Logf("colors: discarding corrupt auto map: %v", err)
		m.auto = Assignments{}
	}
	if m.fixed == nil {
		m.fixed = Assignments{}
	}
	if m.auto == nil {
		m.auto = Assignments{}
	}
	return m
}

// NewManager returns an in-memory manager with no persistence, for
// callers that only need deterministic assignment.
func NewManager() *Manager {
	return &Manager{fixed: Assignments{}, auto: Assignments{}}
}

// ColorFor returns the color id for (field, option), assigning and
// recording a new auto color on first use.
func (m *Manager) ColorFor(field, option string) int {
	if c, ok := m.fixed[field][option]; ok {
		return c
	}
	if c, ok := m.auto[field][option]; ok {
		return c
	}

	c := m.nextAuto(field)
	if m.auto[field] == nil {
		m.auto[field] = map[string]int{}
	}
	m.auto[field][option] = c
	m.saveAuto()
	return c
}

// nextAuto picks the lowest palette id not used for field across both
// maps, wrapping by assignment count once the palette is exhausted.
func (m *Manager) nextAuto(field string) int {
	used := make(map[int]bool, PaletteSize)
	for _, c := range m.fixed[field] {
		used[c] = true
	}
	for _, c := range m.auto[field] {
		used[c] = true
	}
	for id := 1; id <= PaletteSize; id++ {
		if !used[id] {
			return id
		}
	}
	return len(m.auto[field])%PaletteSize + 1
}

// Pin records a fixed color for (field, option) and persists synchronously.
func (m *Manager) Pin(field, option string, color int) error {
	if m.fixed[field] == nil {
		m.fixed[field] = map[string]int{}
	}
	m.fixed[field][option] = color
	if m.store == nil {
		return nil
	}
	return m.store.Save(statestore.BlobColorsFixed, m.fixed)
}

// Unpin removes a fixed assignment. The option falls back to its auto
// color (or gets a fresh one) on next use.
func (m *Manager) Unpin(field, option string) error {
	if opts, ok := m.fixed[field]; ok {
		delete(opts, option)
		if len(opts) == 0 {
			delete(m.fixed, field)
		}
	}
	if m.store == nil {
		return nil
	}
	return m.store.Save(statestore.BlobColorsFixed, m.fixed)
}

// Fixed reports whether (field, option) has a pinned color.
func (m *Manager) Fixed(field, option string) (int, bool) {
	c, ok := m.fixed[field][option]
	return c, ok
}

// All returns a merged view of assignments for display, fixed winning.
func (m *Manager) All() Assignments {
	out := Assignments{}
	for field, opts := range m.auto {
		out[field] = map[string]int{}
		for opt, c := range opts {
			out[field][opt] = c
		}
	}
	for field, opts := range m.fixed {
		if out[field] == nil {
			out[field] = map[string]int{}
		}
		for opt, c := range opts {
			out[field][opt] = c
		}
	}
	return out
}

// saveAuto writes the auto map before returning. The command process is
// short-lived, so a deferred write could be lost at exit and the same
// option would get a different color on the next run.
func (m *Manager) saveAuto() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(statestore.BlobColorsAuto, m.auto); err != nil {
		debug.Logf("colors: auto map persist failed: %v", err)
	}
}
