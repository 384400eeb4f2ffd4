package advisory

import (
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

func outlookCount(m *mapview.Map) int {
	n := 0
	for _, st := range m.Snapshot().Layers {
		if st.ID == OutlookLayerID {
			n++
		}
	}
	return n
}

func TestOutlookReplace(t *testing.T) {
	m := mapview.New()
	o := NewOutlook(m)
	assert.Zero(t, outlookCount(m))

	require.True(t, o.Complete(o.Begin(), nil))
	first := o.Current()
	assert.Equal(t, 1, outlookCount(m))

	require.True(t, o.Complete(o.Begin(), nil))
	assert.Equal(t, 1, outlookCount(m))
	assert.False(t, m.Has(first))
	assert.True(t, m.Has(o.Current()))
}

func TestOutlookIgnoresOutOfOrderCompletion(t *testing.T) {
	m := mapview.New()
	o := NewOutlook(m)

	older := o.Begin()
	newer := o.Begin()
	require.True(t, o.Complete(newer, nil))
	latest := o.Current()

	assert.False(t, o.Complete(older, nil))
	assert.Same(t, latest, o.Current())
	assert.Equal(t, 1, outlookCount(m))
}

func TestOutlookRiskColours(t *testing.T) {
	m := mapview.New()
	o := NewOutlook(m)

	high := geojson.NewFeature(square)
	high.Properties["RISK7DAY"] = "High"
	low := geojson.NewFeature(square)
	low.Properties["RISK2DAY"] = " low "
	plain := geojson.NewFeature(square)

	o.Complete(o.Begin(), []*geojson.Feature{high, low, plain})
	assert.Equal(t, "#ff0000", high.Properties["color"])
	assert.Equal(t, "#ffff00", low.Properties["color"])
	assert.NotContains(t, plain.Properties, "color")
	assert.Len(t, o.Current().Features.Features, 3)
}
