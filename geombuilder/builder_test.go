package geombuilder

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/osmflex/geomhelp"
	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/reproj"
)

func decode(t *testing.T, b []byte) geom.Geometry {
	t.Helper()
	require.NotNil(t, b)
	g, srid, err := DecodeEWKB(b)
	require.NoError(t, err)
	assert.Equal(t, reproj.SRIDLatLon, srid)
	return g
}

func polygonArea(p [][][2]float64) float64 {
	if len(p) == 0 {
		return 0
	}
	area := geomhelp.Shoelace(p[0])
	for _, hole := range p[1:] {
		area -= geomhelp.Shoelace(hole)
	}
	return area
}

func nodes(coords ...[3]float64) []osm.WayNode {
	wn := make([]osm.WayNode, len(coords))
	for i, c := range coords {
		wn[i] = osm.WayNode{Ref: int64(c[0]), Loc: osm.NewLocation(c[1], c[2])}
	}
	return wn
}

func TestEWKBRoundTrip(t *testing.T) {
	b, err := EncodeEWKB(geom.Point{5.5, 52.25}, 3857)
	require.NoError(t, err)

	g, srid, err := DecodeEWKB(b)
	require.NoError(t, err)
	assert.Equal(t, 3857, srid)
	assert.Equal(t, geom.Point{5.5, 52.25}, g)

	_, _, err = DecodeEWKB([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortWKB)
}

func TestBuilder_PointWKB(t *testing.T) {
	b := New(reproj.LatLon{})
	assert.Nil(t, b.PointWKB(osm.Location{}))
	assert.Equal(t, geom.Point{1, 2}, decode(t, b.PointWKB(osm.NewLocation(1, 2))))
}

func TestBuilder_LineWKBs(t *testing.T) {
	b := New(reproj.LatLon{})
	tests := []struct {
		name    string
		nodes   []osm.WayNode
		splitAt float64
		want    int
	}{
		{name: "no nodes", nodes: nil, want: 0},
		{name: "single node", nodes: nodes([3]float64{1, 0, 0}), want: 0},
		{name: "repeated node", nodes: nodes([3]float64{1, 0, 0}, [3]float64{2, 0, 0}), want: 0},
		{name: "missing location", nodes: []osm.WayNode{{Ref: 1, Loc: osm.NewLocation(0, 0)}, {Ref: 2}}, want: 0},
		{name: "line", nodes: nodes([3]float64{1, 0, 0}, [3]float64{2, 10, 0}), want: 1},
		{name: "split", nodes: nodes([3]float64{1, 0, 0}, [3]float64{2, 10, 0}), splitAt: 4, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.LineWKBs(tt.nodes, tt.splitAt)
			require.Len(t, got, tt.want)
			for _, wkb := range got {
				_, isLine := decode(t, wkb).(geom.LineString)
				assert.True(t, isLine)
			}
		})
	}
}

func TestSplitLine(t *testing.T) {
	lines := splitLine([][2]float64{{0, 0}, {10, 0}}, 4)
	require.Len(t, lines, 3)
	wantEnds := []float64{4, 8, 10}
	for i, line := range lines {
		require.Len(t, line, 2)
		assert.InDelta(t, wantEnds[i], line[1][0], 1e-9)
		assert.InDelta(t, 0, line[1][1], 1e-9)
	}

	lines = splitLine([][2]float64{{0, 0}, {3, 0}, {6, 0}}, 0)
	assert.Len(t, lines, 1)
}

func TestBuilder_PolygonWKB(t *testing.T) {
	b := New(reproj.LatLon{})

	square := nodes([3]float64{1, 0, 0}, [3]float64{2, 0, 1}, [3]float64{3, 1, 1}, [3]float64{4, 1, 0}, [3]float64{1, 0, 0})
	p, ok := decode(t, b.PolygonWKB(square)).(geom.Polygon)
	require.True(t, ok)
	require.Len(t, p, 1)
	assert.InDelta(t, 1.0, polygonArea(p), 1e-9)

	flat := nodes([3]float64{1, 0, 0}, [3]float64{2, 1, 0}, [3]float64{3, 2, 0}, [3]float64{1, 0, 0})
	assert.Nil(t, b.PolygonWKB(flat))

	unclosed := square[:4]
	assert.Nil(t, b.PolygonWKB(unclosed))
}

func TestBuilder_MultiLineWKB(t *testing.T) {
	b := New(reproj.LatLon{})
	ways := []osm.Way{
		{ID: 1, Nodes: nodes([3]float64{1, 0, 0}, [3]float64{2, 1, 0})},
		{ID: 2, Nodes: nodes([3]float64{3, 5, 5})},
		{ID: 3, Nodes: nodes([3]float64{2, 1, 0}, [3]float64{4, 2, 1})},
	}
	ml, ok := decode(t, b.MultiLineWKB(ways, 0)).(geom.MultiLineString)
	require.True(t, ok)
	assert.Len(t, ml, 2)

	assert.Nil(t, b.MultiLineWKB(ways[1:2], 0))
}

func TestBuilder_MultiPolygonWKB(t *testing.T) {
	b := New(reproj.LatLon{})

	// outer ring split over two ways, one of them reversed
	outerA := osm.Way{ID: 1, Nodes: nodes([3]float64{1, 0, 0}, [3]float64{2, 10, 0}, [3]float64{3, 10, 10})}
	outerB := osm.Way{ID: 2, Nodes: nodes([3]float64{1, 0, 0}, [3]float64{4, 0, 10}, [3]float64{3, 10, 10})}
	inner := osm.Way{ID: 3, Nodes: nodes([3]float64{5, 2, 2}, [3]float64{6, 2, 4}, [3]float64{7, 4, 4}, [3]float64{8, 4, 2}, [3]float64{5, 2, 2})}
	island := osm.Way{ID: 4, Nodes: nodes([3]float64{9, 20, 20}, [3]float64{10, 21, 20}, [3]float64{11, 21, 21}, [3]float64{9, 20, 20})}

	tests := []struct {
		name     string
		ways     []osm.Way
		polygons int
		rings    []int
		area     float64
	}{
		{name: "joined outer", ways: []osm.Way{outerA, outerB}, polygons: 1, rings: []int{1}, area: 100},
		{name: "outer with hole", ways: []osm.Way{inner, outerA, outerB}, polygons: 1, rings: []int{2}, area: 96},
		{name: "two polygons", ways: []osm.Way{outerA, island, outerB}, polygons: 2, rings: []int{1, 1}, area: 100.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp, ok := decode(t, b.MultiPolygonWKB(tt.ways, true)).(geom.MultiPolygon)
			require.True(t, ok)
			require.Len(t, mp, tt.polygons)
			area := 0.
			for i, p := range mp {
				assert.Len(t, p, tt.rings[i])
				area += polygonArea(p)
			}
			assert.InDelta(t, tt.area, area, 1e-9)
		})
	}

	assert.Nil(t, b.MultiPolygonWKB([]osm.Way{outerA}, true), "open chain")
	assert.Nil(t, b.MultiPolygonWKB(nil, true))
}

func TestOrient(t *testing.T) {
	cw := [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	assert.Greater(t, geomhelp.SignedArea(orient(cw, true)), 0.)
	assert.Less(t, geomhelp.SignedArea(orient(cw, false)), 0.)
}
