package geomhelp

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
)

func TestShoelace(t *testing.T) {
	var tests = []struct {
		pts  [][2]float64
		area float64
	}{
		// Rectangle
		0: {pts: [][2]float64{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}, area: float64(100)},
		// Triangle
		1: {pts: [][2]float64{{0, 0}, {5, 10}, {0, 10}, {0, 0}}, area: float64(25)},
		// Missing closing point
		2: {pts: [][2]float64{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, area: float64(100)},
		// Single point
		3: {pts: [][2]float64{{1234, 4321}}, area: float64(0.000000)},
		// No point
		4: {pts: nil, area: float64(0.000000)},
	}

	for k, test := range tests {
		area := Shoelace(test.pts)
		if area != test.area {
			t.Errorf("test: %d, expected: %f \ngot: %f", k, test.area, area)
		}
	}
}

func TestSignedArea(t *testing.T) {
	ccw := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	cw := [][2]float64{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.Equal(t, 100.0, SignedArea(ccw))
	assert.Equal(t, -100.0, SignedArea(cw))
}

func TestPointInRing(t *testing.T) {
	ring := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	tests := []struct {
		name   string
		pt     [2]float64
		wantIn bool
		wantOn bool
	}{
		{name: "inside", pt: [2]float64{5, 5}, wantIn: true},
		{name: "outside", pt: [2]float64{15, 5}},
		{name: "on edge", pt: [2]float64{0, 5}, wantOn: true},
		{name: "on corner", pt: [2]float64{10, 10}, wantOn: true},
		{name: "below", pt: [2]float64{5, -1}},
		{name: "left", pt: [2]float64{-5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, on := PointInRing(ring, tt.pt)
			assert.Equal(t, tt.wantIn, in)
			assert.Equal(t, tt.wantOn, on)
		})
	}

	in, on := PointInRing(ring[:4], [2]float64{10, 5})
	assert.False(t, in)
	assert.True(t, on)

	in, on = PointInRing(ring[:2], [2]float64{0, 0})
	assert.False(t, in)
	assert.False(t, on)
}

func TestWktMustEncode(t *testing.T) {
	p := geom.Point{1, 2}
	assert.Contains(t, WktMustEncode(p, 0), "POINT")
	assert.Equal(t, "POINT...", WktMustEncode(p, 8))
}
