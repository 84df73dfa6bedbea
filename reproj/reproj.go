// Package reproj converts WGS84 node locations into the coordinate system of
// the output tables.
package reproj

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/osmflex/osm"
)

const (
	SRIDLatLon     = 4326
	SRIDMercator   = 3857
	earthRadius    = 6378137.0
	maxMercatorLat = 85.0511287798066
)

// Projection transforms locations into a target SRS.
type Projection interface {
	SRID() int
	Project(loc osm.Location) geom.Point
}

// New returns the projection for the given SRID.
func New(srid int) (Projection, error) {
	switch srid {
	case SRIDLatLon:
		return LatLon{}, nil
	case SRIDMercator:
		return SphericalMercator{}, nil
	}
	return nil, fmt.Errorf("unsupported SRID %d", srid)
}

// LatLon keeps coordinates as they are.
type LatLon struct{}

func (LatLon) SRID() int { return SRIDLatLon }

func (LatLon) Project(loc osm.Location) geom.Point {
	return geom.Point{loc.Lon, loc.Lat}
}

// SphericalMercator projects to EPSG:3857. Latitudes beyond the mercator
// limit are clamped.
type SphericalMercator struct{}

func (SphericalMercator) SRID() int { return SRIDMercator }

func (SphericalMercator) Project(loc osm.Location) geom.Point {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, loc.Lat))
	x := earthRadius * (math.Pi / 180) * loc.Lon
	y := earthRadius * math.Log(math.Tan((math.Pi/4)+((math.Pi/180)*lat/2)))
	return geom.Point{x, y}
}
