// Package radar cycles a sliding window of radar frames on the map.
package radar

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

// Timestamp identifies one radar sweep.
type Timestamp int64

// PauseTicks is the number of extra ticks the last frame is held before looping.
const PauseTicks = 4

const tileURLTemplate = "https://tilecache.rainviewer.com/v2/radar/%d/256/{z}/{x}/{y}/%d/1_1.png"

// Layers is the part of the map the scheduler mutates.
type Layers interface {
	Attach(l *mapview.Layer)
	Detach(l *mapview.Layer)
	Has(l *mapview.Layer) bool
	Touch()
}

// Scheduler is not safe for concurrent use; the widget loop owns it.
type Scheduler struct {
	m      Layers
	scheme int

	timestamps []Timestamp
	layers     map[Timestamp]*mapview.Layer
	cursor     int
	current    Timestamp
	hasCurrent bool
}

func NewScheduler(m Layers, scheme int) *Scheduler {
	return &Scheduler{
		m:      m,
		scheme: scheme,
		layers: make(map[Timestamp]*mapview.Layer),
		cursor: -1,
	}
}

// LayerID is the map ID of the tile layer for ts.
func LayerID(ts Timestamp) string {
	return "radar/" + strconv.FormatInt(int64(ts), 10)
}

// TileURL is the Leaflet tile template for ts in the given colour scheme.
func TileURL(ts Timestamp, scheme int) string {
	return fmt.Sprintf(tileURLTemplate, ts, scheme)
}

// Ingest appends unseen timestamps and trims the window to maxFrames,
// discarding the layers of evicted frames. It returns the evicted timestamps.
func (s *Scheduler) Ingest(newTimestamps []Timestamp, maxFrames int) []Timestamp {
	if maxFrames < 1 {
		maxFrames = 1
	}
	for _, ts := range newTimestamps {
		if !lo.Contains(s.timestamps, ts) {
			s.timestamps = append(s.timestamps, ts)
		}
	}
	if len(s.timestamps) <= maxFrames {
		return nil
	}

	cut := len(s.timestamps) - maxFrames
	evicted := make([]Timestamp, cut)
	copy(evicted, s.timestamps[:cut])
	s.timestamps = append(s.timestamps[:0], s.timestamps[cut:]...)

	for _, ts := range evicted {
		// an evicted frame can no longer be the visible one
		if s.hasCurrent && ts == s.current {
			s.hasCurrent = false
			s.current = 0
		}
		if l, ok := s.layers[ts]; ok {
			delete(s.layers, ts)
			s.m.Detach(l)
		}
	}
	return evicted
}

// Advance moves the animation one tick forward.
func (s *Scheduler) Advance() {
	n := len(s.timestamps)
	if n == 0 {
		return
	}

	s.cursor = (s.cursor + 1) % (n + PauseTicks)
	if s.cursor >= n {
		return
	}

	next := s.timestamps[s.cursor]
	if s.hasCurrent && next == s.current {
		return
	}

	s.materialize(next).SetOpacity(1)
	if s.hasCurrent {
		if prev, ok := s.layers[s.current]; ok {
			prev.SetOpacity(0)
		}
	}
	s.materialize(s.timestamps[(s.cursor+1)%n])

	s.current = next
	s.hasCurrent = true
	s.m.Touch()
}

// materialize returns the layer for ts, creating and attaching it if needed.
func (s *Scheduler) materialize(ts Timestamp) *mapview.Layer {
	l, ok := s.layers[ts]
	if !ok {
		l = mapview.NewTileLayer(LayerID(ts), TileURL(ts, s.scheme), int64(ts))
		s.layers[ts] = l
	}
	if !s.m.Has(l) {
		s.m.Attach(l)
	}
	return l
}

// Frames returns a copy of the known timestamps, oldest first.
func (s *Scheduler) Frames() []Timestamp {
	out := make([]Timestamp, len(s.timestamps))
	copy(out, s.timestamps)
	return out
}

func (s *Scheduler) Len() int { return len(s.timestamps) }

func (s *Scheduler) Cursor() int { return s.cursor }

// Current returns the fully visible frame, if any.
func (s *Scheduler) Current() (Timestamp, bool) {
	return s.current, s.hasCurrent
}

// Layer returns the materialized layer for ts.
func (s *Scheduler) Layer(ts Timestamp) (*mapview.Layer, bool) {
	l, ok := s.layers[ts]
	return l, ok
}
