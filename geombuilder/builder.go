// Package geombuilder creates the binary geometries written to output tables
// from resolved node locations.
package geombuilder

import (
	"log"
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/reproj"
)

// Builder projects locations and encodes geometries as EWKB with the SRID of
// its projection. An empty (nil) result means no geometry could be built.
type Builder struct {
	proj reproj.Projection
}

func New(proj reproj.Projection) *Builder {
	return &Builder{proj: proj}
}

func (b *Builder) SRID() int {
	return b.proj.SRID()
}

func (b *Builder) encode(g geom.Geometry) []byte {
	wkb, err := EncodeEWKB(g, b.proj.SRID())
	if err != nil {
		log.Printf("could not encode %T geometry: %s", g, err)
		return nil
	}
	return wkb
}

// projectPath projects the located nodes, skipping unknown locations and
// repeated points.
func (b *Builder) projectPath(nodes []osm.WayNode) path {
	var p path
	for _, n := range nodes {
		if !n.Loc.Valid() {
			continue
		}
		pt := b.proj.Project(n.Loc)
		if len(p.pts) > 0 && p.pts[len(p.pts)-1] == [2]float64(pt) {
			p.last = n.Ref
			continue
		}
		if len(p.pts) == 0 {
			p.first = n.Ref
		}
		p.pts = append(p.pts, pt)
		p.last = n.Ref
	}
	return p
}

// PointWKB returns the point geometry of a location.
func (b *Builder) PointWKB(loc osm.Location) []byte {
	if !loc.Valid() {
		return nil
	}
	return b.encode(b.proj.Project(loc))
}

// LineWKBs returns the line geometry of a way, split into pieces no longer
// than splitAt. A splitAt of zero disables splitting.
func (b *Builder) LineWKBs(nodes []osm.WayNode, splitAt float64) [][]byte {
	p := b.projectPath(nodes)
	if len(p.pts) < 2 {
		return nil
	}
	var wkbs [][]byte
	for _, line := range splitLine(p.pts, splitAt) {
		if g := b.encode(geom.LineString(line)); g != nil {
			wkbs = append(wkbs, g)
		}
	}
	return wkbs
}

// PolygonWKB returns the polygon geometry of a closed way, or nil when the
// ring is not closed after resolving locations or has no area.
func (b *Builder) PolygonWKB(nodes []osm.WayNode) []byte {
	p := b.projectPath(nodes)
	if !validRing(p.pts, true) {
		return nil
	}
	return b.encode(geom.Polygon{orient(p.pts, true)})
}

// MultiLineWKB returns one multi-line geometry built from the member ways.
func (b *Builder) MultiLineWKB(ways []osm.Way, splitAt float64) []byte {
	var ml geom.MultiLineString
	for i := range ways {
		p := b.projectPath(ways[i].Nodes)
		if len(p.pts) < 2 {
			continue
		}
		ml = append(ml, splitLine(p.pts, splitAt)...)
	}
	if len(ml) == 0 {
		return nil
	}
	return b.encode(ml)
}

// MultiPolygonWKB assembles rings from the member ways and returns them as
// one multi-polygon. With cleanup set, rings without area are discarded.
func (b *Builder) MultiPolygonWKB(ways []osm.Way, cleanup bool) []byte {
	var paths []path
	for i := range ways {
		p := b.projectPath(ways[i].Nodes)
		if len(p.pts) >= 2 {
			paths = append(paths, p)
		}
	}

	var rings [][][2]float64
	for _, ring := range assembleRings(paths) {
		if validRing(ring, cleanup) {
			rings = append(rings, ring)
		}
	}
	if len(rings) == 0 {
		return nil
	}
	return b.encode(nestRings(rings))
}

func splitLine(pts [][2]float64, splitAt float64) [][][2]float64 {
	if splitAt <= 0 {
		return [][][2]float64{pts}
	}

	var lines [][][2]float64
	current := [][2]float64{pts[0]}
	dist := 0.
	for i := 1; i < len(pts); i++ {
		p0, p1 := pts[i-1], pts[i]
		seg := math.Hypot(p1[0]-p0[0], p1[1]-p0[1])
		for dist+seg > splitAt {
			frac := (splitAt - dist) / seg
			split := [2]float64{p0[0] + frac*(p1[0]-p0[0]), p0[1] + frac*(p1[1]-p0[1])}
			current = append(current, split)
			lines = append(lines, current)
			current = [][2]float64{split}
			seg -= splitAt - dist
			p0 = split
			dist = 0
		}
		current = append(current, p1)
		dist += seg
	}
	if len(current) > 1 {
		lines = append(lines, current)
	}
	return lines
}
