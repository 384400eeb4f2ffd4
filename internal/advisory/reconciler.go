// Package advisory keeps storm-advisory overlays in step with the NHC GIS feed.
//
// A refresh pass reconciles the held entries against the full membership of
// the latest feed. Layer payloads are fetched asynchronously; each build job
// carries the generation of the entry that requested it, and Complete only
// attaches the result if that exact entry is still held.
package advisory

import (
	"github.com/paulmach/orb/geojson"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

// Item is one entry of the advisory feed. ID is the item link.
type Item struct {
	ID    string
	Title string
}

// Entry is a held advisory. Layer is nil while its build is pending.
type Entry struct {
	Key    string
	Kind   Kind
	Active bool
	Layer  *mapview.Layer

	generation uint64
}

// Build describes a pending layer fetch for a newly created entry.
type Build struct {
	Item       Item
	Kind       Kind
	Generation uint64
}

// Layers is the part of the map the reconciler mutates.
type Layers interface {
	Attach(l *mapview.Layer)
	Detach(l *mapview.Layer)
}

// Reconciler is not safe for concurrent use; the widget loop owns it.
type Reconciler struct {
	m          Layers
	entries    map[string]*Entry
	generation uint64
}

func NewReconciler(m Layers) *Reconciler {
	return &Reconciler{
		m:       m,
		entries: make(map[string]*Entry),
	}
}

// LayerID is the map ID of the layer owned by the entry with this key.
func LayerID(key string) string {
	return "advisory/" + key
}

// Refresh reconciles the held entries against items and returns the builds
// the caller must run for entries created by this pass.
func (r *Reconciler) Refresh(items []Item) []Build {
	for _, e := range r.entries {
		e.Active = false
	}

	var builds []Build
	for _, it := range items {
		if e, ok := r.entries[it.ID]; ok {
			e.Active = true
			continue
		}
		kind, ok := Classify(it.Title)
		if !ok {
			continue
		}
		r.generation++
		r.entries[it.ID] = &Entry{
			Key:        it.ID,
			Kind:       kind,
			Active:     true,
			generation: r.generation,
		}
		builds = append(builds, Build{Item: it, Kind: kind, Generation: r.generation})
	}

	for key, e := range r.entries {
		if e.Active {
			continue
		}
		if e.Layer != nil {
			r.m.Detach(e.Layer)
		}
		delete(r.entries, key)
	}
	return builds
}

// Complete attaches the built layer if the requesting entry is still held and
// pending. It reports whether the layer was attached. A failed build drops
// its entry so the next refresh requests it again.
func (r *Reconciler) Complete(b Build, features []*geojson.Feature, err error) bool {
	e, ok := r.entries[b.Item.ID]
	live := ok && e.generation == b.Generation && e.Layer == nil
	if err != nil {
		if live {
			delete(r.entries, b.Item.ID)
		}
		return false
	}
	if !live {
		return false
	}
	e.Layer = mapview.NewVectorLayer(LayerID(e.Key), mapview.KindVector, e.Kind.Style(), features)
	r.m.Attach(e.Layer)
	return true
}

// Entry returns the held entry for key.
func (r *Reconciler) Entry(key string) (*Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

func (r *Reconciler) Len() int { return len(r.entries) }

// Pending counts held entries whose layer has not been built yet.
func (r *Reconciler) Pending() int {
	n := 0
	for _, e := range r.entries {
		if e.Layer == nil {
			n++
		}
	}
	return n
}
