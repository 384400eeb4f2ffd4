package radar

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

func opaqueLayers(m *mapview.Map) []string {
	var ids []string
	for _, l := range m.Layers() {
		if l.Opacity() == 1 {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func TestIngestSlidingWindow(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)

	evicted := s.Ingest([]Timestamp{10, 20, 30, 40}, 3)
	assert.Equal(t, []Timestamp{10}, evicted)
	assert.Equal(t, []Timestamp{20, 30, 40}, s.Frames())

	for i := 0; i < 3; i++ {
		s.Advance()
	}
	l20, ok := s.Layer(20)
	require.True(t, ok)
	require.True(t, m.Has(l20))

	evicted = s.Ingest([]Timestamp{40, 50}, 3)
	assert.Equal(t, []Timestamp{20}, evicted)
	assert.Equal(t, []Timestamp{30, 40, 50}, s.Frames())

	assert.False(t, m.Has(l20))
	_, ok = s.Layer(20)
	assert.False(t, ok)
	_, ok = s.Layer(10)
	assert.False(t, ok)
}

func TestIngestIdempotent(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)
	s.Ingest([]Timestamp{1, 2, 3}, 5)
	s.Advance()
	before := m.Snapshot()

	assert.Empty(t, s.Ingest([]Timestamp{1, 2, 3}, 5))
	assert.Empty(t, s.Ingest(nil, 5))
	assert.Equal(t, []Timestamp{1, 2, 3}, s.Frames())
	assert.Equal(t, before, m.Snapshot())
}

func TestIngestDeduplicatesBatch(t *testing.T) {
	s := NewScheduler(mapview.New(), 2)
	s.Ingest([]Timestamp{5, 5, 6, 5}, 10)
	assert.Equal(t, []Timestamp{5, 6}, s.Frames())
}

func TestIngestZeroMaxFramesKeepsOne(t *testing.T) {
	s := NewScheduler(mapview.New(), 2)
	s.Ingest([]Timestamp{1, 2, 3}, 0)
	assert.Equal(t, []Timestamp{3}, s.Frames())
}

func TestWindowInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := mapview.New()
	s := NewScheduler(m, 2)
	next := Timestamp(100)
	const maxFrames = 6

	for round := 0; round < 200; round++ {
		batch := make([]Timestamp, 0, 4)
		// replay some known frames and append a few new ones
		for _, ts := range s.Frames() {
			if rng.Intn(3) == 0 {
				batch = append(batch, ts)
			}
		}
		for i := rng.Intn(4); i > 0; i-- {
			next += 10
			batch = append(batch, next)
		}
		s.Ingest(batch, maxFrames)

		for i := rng.Intn(5); i > 0; i-- {
			s.Advance()
			assert.LessOrEqual(t, len(opaqueLayers(m)), 1)
		}

		frames := s.Frames()
		require.LessOrEqual(t, len(frames), maxFrames)
		for i := 1; i < len(frames); i++ {
			require.Less(t, frames[i-1], frames[i], "relative order preserved")
		}
		for _, l := range m.Layers() {
			var found bool
			for _, ts := range frames {
				if LayerID(ts) == l.ID {
					found = true
				}
			}
			require.True(t, found, "layer %s outside the window", l.ID)
		}
	}
}

func TestAdvanceWrapVisitsEachFrameOnce(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)
	frames := []Timestamp{10, 20, 30, 40, 50}
	s.Ingest(frames, 10)

	visits := map[Timestamp]int{}
	var order []Timestamp
	for i := 0; i < len(frames)+PauseTicks; i++ {
		s.Advance()
		cur, ok := s.Current()
		require.True(t, ok)
		if s.Cursor() == len(frames)-1 {
			// last real frame preloads the first one, hidden
			first, ok := s.Layer(frames[0])
			require.True(t, ok)
			assert.True(t, m.Has(first))
			assert.Equal(t, 0.0, first.Opacity())
		}
		if len(order) == 0 || order[len(order)-1] != cur {
			order = append(order, cur)
			visits[cur]++
		}
	}

	assert.Equal(t, frames, order)
	for _, ts := range frames {
		assert.Equal(t, 1, visits[ts])
	}
	assert.Equal(t, len(frames)+PauseTicks-1, s.Cursor())

	s.Advance()
	cur, _ := s.Current()
	assert.Equal(t, Timestamp(10), cur)
	assert.Equal(t, 0, s.Cursor())
}

func TestAdvanceCrossfadeAndPreload(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 4)
	s.Ingest([]Timestamp{10, 20, 30}, 10)

	s.Advance()
	l10, _ := s.Layer(10)
	l20, ok := s.Layer(20)
	require.True(t, ok, "next frame preloaded")
	assert.Equal(t, 1.0, l10.Opacity())
	assert.Equal(t, 0.0, l20.Opacity())
	assert.True(t, m.Has(l20))
	assert.Equal(t, TileURL(10, 4), l10.URL)
	assert.Equal(t, int64(10), l10.ZIndex)

	s.Advance()
	assert.Equal(t, 0.0, l10.Opacity())
	assert.True(t, m.Has(l10), "previous frame stays resident")
	assert.Equal(t, 1.0, l20.Opacity())
	assert.Equal(t, []string{LayerID(20)}, opaqueLayers(m))
}

func TestAdvancePausePhaseHoldsLastFrame(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)
	s.Ingest([]Timestamp{1, 2}, 10)
	s.Advance()
	s.Advance()
	before := m.Snapshot()

	for i := 0; i < PauseTicks; i++ {
		s.Advance()
		cur, _ := s.Current()
		assert.Equal(t, Timestamp(2), cur)
	}
	assert.Equal(t, before, m.Snapshot())
}

func TestAdvanceWithoutFramesIsNoop(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)
	s.Advance()
	assert.Equal(t, -1, s.Cursor())
	assert.Empty(t, m.Layers())
}

func TestAdvanceSkipsCurrentAfterShrink(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)
	s.Ingest([]Timestamp{1}, 1)
	s.Advance()
	before := m.Snapshot()

	// single frame window: every real tick lands on the current frame
	for i := 0; i < 10; i++ {
		s.Advance()
	}
	assert.Equal(t, before, m.Snapshot())
}

func TestIngestEvictsCurrentFrame(t *testing.T) {
	m := mapview.New()
	s := NewScheduler(m, 2)
	s.Ingest([]Timestamp{1, 2, 3}, 3)
	for i := 0; i < 3; i++ {
		s.Advance()
	}
	cur, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, Timestamp(3), cur)

	evicted := s.Ingest([]Timestamp{4, 5, 6, 7}, 3)
	assert.Equal(t, []Timestamp{1, 2, 3, 4}, evicted)
	assert.Equal(t, []Timestamp{5, 6, 7}, s.Frames())

	_, ok = s.Current()
	assert.False(t, ok, "evicted frame is no longer current")
	assert.Empty(t, opaqueLayers(m))

	// the next real tick shows a frame from the new window
	for {
		s.Advance()
		if s.Cursor() < s.Len() {
			break
		}
	}
	cur, ok = s.Current()
	require.True(t, ok)
	assert.Contains(t, s.Frames(), cur)
	assert.Equal(t, []string{LayerID(cur)}, opaqueLayers(m))
}
