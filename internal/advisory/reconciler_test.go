package advisory

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

func forecastItem(id string) Item {
	return Item{ID: id, Title: "Advisory #7 Forecast [shp] - Hurricane " + id}
}

func point() []*geojson.Feature {
	return []*geojson.Feature{geojson.NewFeature(orb.Point{-80, 30})}
}

// completeAll resolves every build successfully, in order.
func completeAll(t *testing.T, r *Reconciler, builds []Build) {
	t.Helper()
	for _, b := range builds {
		require.True(t, r.Complete(b, point(), nil))
	}
}

func TestRefreshReconcilesMembership(t *testing.T) {
	m := mapview.New()
	r := NewReconciler(m)

	builds := r.Refresh([]Item{forecastItem("a"), forecastItem("b"), forecastItem("c")})
	require.Len(t, builds, 3)
	completeAll(t, r, builds)

	a, _ := r.Entry("a")
	b, _ := r.Entry("b")
	c, _ := r.Entry("c")
	layerA, layerB, layerC := a.Layer, b.Layer, c.Layer

	builds = r.Refresh([]Item{forecastItem("b"), forecastItem("c"), forecastItem("d")})
	require.Len(t, builds, 1)
	assert.Equal(t, "d", builds[0].Item.ID)
	completeAll(t, r, builds)

	_, ok := r.Entry("a")
	assert.False(t, ok)
	assert.False(t, m.Has(layerA))

	b, _ = r.Entry("b")
	c, _ = r.Entry("c")
	assert.Same(t, layerB, b.Layer, "retained entries are not rebuilt")
	assert.Same(t, layerC, c.Layer)
	assert.True(t, b.Active)

	d, ok := r.Entry("d")
	require.True(t, ok)
	assert.True(t, m.Has(d.Layer))
	assert.Equal(t, 3, r.Len())
	assert.Len(t, m.Layers(), 3)
}

func TestRefreshSkipsUnclassifiedItems(t *testing.T) {
	r := NewReconciler(mapview.New())
	builds := r.Refresh([]Item{
		{ID: "kmz", Title: "Advisory #7 Forecast [kmz]"},
		{ID: "text", Title: "Tropical Storm Foo Public Advisory"},
		{ID: "wind", Title: "Advisory #7 Wind Field [shp]"},
	})
	require.Len(t, builds, 1)
	assert.Equal(t, KindWindField, builds[0].Kind)
	assert.Equal(t, 1, r.Len())
}

func TestRefreshEmptyFeedRemovesEverything(t *testing.T) {
	m := mapview.New()
	r := NewReconciler(m)
	completeAll(t, r, r.Refresh([]Item{forecastItem("a"), forecastItem("b")}))

	assert.Empty(t, r.Refresh(nil))
	assert.Zero(t, r.Len())
	assert.Empty(t, m.Layers())
}

func TestRefreshDuplicateItemsInFeed(t *testing.T) {
	r := NewReconciler(mapview.New())
	builds := r.Refresh([]Item{forecastItem("a"), forecastItem("a")})
	assert.Len(t, builds, 1)
}

func TestCompleteAfterRemovalDiscardsLayer(t *testing.T) {
	m := mapview.New()
	r := NewReconciler(m)

	pending := r.Refresh([]Item{forecastItem("a")})
	require.Len(t, pending, 1)
	assert.Equal(t, 1, r.Pending())

	// the next pass drops "a" before its fetch resolves
	r.Refresh(nil)
	assert.False(t, r.Complete(pending[0], point(), nil))
	assert.Empty(t, m.Layers())
}

func TestCompleteStaleGenerationDiscarded(t *testing.T) {
	m := mapview.New()
	r := NewReconciler(m)

	first := r.Refresh([]Item{forecastItem("a")})
	r.Refresh(nil)
	second := r.Refresh([]Item{forecastItem("a")})
	require.Len(t, second, 1)
	require.NotEqual(t, first[0].Generation, second[0].Generation)

	assert.False(t, r.Complete(first[0], point(), nil), "superseded build")
	assert.True(t, r.Complete(second[0], point(), nil))
	assert.False(t, r.Complete(second[0], point(), nil), "already built")
	assert.Len(t, m.Layers(), 1)
}

func TestCompleteFailureDropsEntryForRetry(t *testing.T) {
	m := mapview.New()
	r := NewReconciler(m)

	builds := r.Refresh([]Item{forecastItem("a")})
	assert.False(t, r.Complete(builds[0], nil, errors.New("timeout")))
	assert.Zero(t, r.Len())

	retry := r.Refresh([]Item{forecastItem("a")})
	require.Len(t, retry, 1)
	assert.True(t, r.Complete(retry[0], point(), nil))
	assert.Len(t, m.Layers(), 1)
}

func TestCompleteUsesKindStyle(t *testing.T) {
	r := NewReconciler(mapview.New())
	builds := r.Refresh([]Item{{ID: "w", Title: "Wind Field [shp]"}})
	require.True(t, r.Complete(builds[0], point(), nil))

	e, _ := r.Entry("w")
	assert.Equal(t, LayerID("w"), e.Layer.ID)
	assert.Equal(t, KindWindField.Style(), e.Layer.Style)
	assert.Equal(t, 1.0, e.Layer.Opacity())
}
