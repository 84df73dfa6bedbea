package reproj

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/osmflex/osm"
)

func TestNew(t *testing.T) {
	p, err := New(4326)
	require.NoError(t, err)
	assert.Equal(t, 4326, p.SRID())

	p, err = New(3857)
	require.NoError(t, err)
	assert.Equal(t, 3857, p.SRID())

	_, err = New(28992)
	assert.Error(t, err)
}

func TestSphericalMercator_Project(t *testing.T) {
	tests := []struct {
		name string
		loc  osm.Location
		want geom.Point
	}{
		{name: "origin", loc: osm.NewLocation(0, 0), want: geom.Point{0, 0}},
		{name: "antimeridian", loc: osm.NewLocation(180, 0), want: geom.Point{20037508.342789244, 0}},
		{name: "north", loc: osm.NewLocation(0, 85.0511287798066), want: geom.Point{0, 20037508.342789244}},
		{name: "pole clamped", loc: osm.NewLocation(0, 90), want: geom.Point{0, 20037508.342789244}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SphericalMercator{}.Project(tt.loc)
			assert.InDelta(t, tt.want[0], got[0], 0.01)
			assert.InDelta(t, tt.want[1], got[1], 0.01)
		})
	}
}

func TestLatLon_Project(t *testing.T) {
	assert.Equal(t, geom.Point{5.1, 52.3}, LatLon{}.Project(osm.NewLocation(5.1, 52.3)))
}
