// Package mapview holds the authoritative layer collection of one dashboard map.
//
// The widget loop is the only writer. HTTP observers read snapshots
// concurrently, so every operation takes the map lock and Replace swaps two
// layers in one critical section.
package mapview

import (
	"sync"

	"github.com/paulmach/orb/geojson"
)

// LayerState is a point-in-time copy of one attached layer. Features are not
// part of it; observers fetch them by Revision.
type LayerState struct {
	ID       string  `json:"id"`
	Revision uint64  `json:"revision"`
	Kind     Kind    `json:"kind"`
	Opacity  float64 `json:"opacity"`
	ZIndex   int64   `json:"zIndex"`
	URL      string  `json:"url,omitempty"`
	TileSize int     `json:"tileSize,omitempty"`
	Style    *Style  `json:"style,omitempty"`
}

// Snapshot is the full observable state of the map.
type Snapshot struct {
	Version uint64       `json:"version"`
	Layers  []LayerState `json:"layers"`
}

type Map struct {
	mu      sync.RWMutex
	order   []string
	layers  map[string]*Layer
	version uint64
}

func New() *Map {
	return &Map{layers: make(map[string]*Layer)}
}

// Attach adds l to the map. A different layer already attached under the same
// ID is displaced. Attaching an already attached layer is a no-op.
func (m *Map) Attach(l *Layer) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachLocked(l)
}

// Detach removes l if it is the layer attached under its ID.
func (m *Map) Detach(l *Layer) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachLocked(l)
}

// Replace detaches old and attaches new atomically with respect to observers.
// Either argument may be nil.
func (m *Map) Replace(old, new *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old != nil {
		m.detachLocked(old)
	}
	if new != nil {
		m.attachLocked(new)
	}
}

// Has reports whether this exact layer is attached.
func (m *Map) Has(l *Layer) bool {
	if l == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layers[l.ID] == l
}

// Layers returns the attached layers in attach order.
func (m *Map) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Layer, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.layers[id])
	}
	return out
}

// Touch bumps the snapshot version after an in-place opacity change.
func (m *Map) Touch() {
	m.mu.Lock()
	m.version++
	m.mu.Unlock()
}

func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Version: m.version,
		Layers:  make([]LayerState, 0, len(m.order)),
	}
	for _, id := range m.order {
		l := m.layers[id]
		st := LayerState{
			ID:       l.ID,
			Revision: l.Revision,
			Kind:     l.Kind,
			Opacity:  l.Opacity(),
			ZIndex:   l.ZIndex,
			URL:      l.URL,
			TileSize: l.TileSize,
		}
		if l.Kind != KindTile {
			style := l.Style
			st.Style = &style
		}
		snap.Layers = append(snap.Layers, st)
	}
	return snap
}

// Features returns the features of the attached layer with this revision.
func (m *Map) Features(revision uint64) (*geojson.FeatureCollection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.layers {
		if l.Revision == revision && l.Features != nil {
			return l.Features, true
		}
	}
	return nil, false
}

func (m *Map) attachLocked(l *Layer) {
	if cur, ok := m.layers[l.ID]; ok {
		if cur == l {
			return
		}
		m.removeID(l.ID)
	}
	m.layers[l.ID] = l
	m.order = append(m.order, l.ID)
	m.version++
}

func (m *Map) detachLocked(l *Layer) {
	if m.layers[l.ID] != l {
		return
	}
	m.removeID(l.ID)
	m.version++
}

func (m *Map) removeID(id string) {
	delete(m.layers, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
