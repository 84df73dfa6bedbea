package geombuilder

import (
	"sort"

	"github.com/go-spatial/geom"

	"github.com/pdok/osmflex/geomhelp"
)

// path is a projected way, keeping the node ids of its ends for joining.
type path struct {
	first, last int64
	pts         [][2]float64
}

// assembleRings joins way paths at shared end nodes until they close.
// Paths that do not end up in a closed ring are dropped.
func assembleRings(paths []path) [][][2]float64 {
	used := make([]bool, len(paths))
	var rings [][][2]float64
	for i := range paths {
		if used[i] {
			continue
		}
		used[i] = true
		first, last := paths[i].first, paths[i].last
		pts := append([][2]float64{}, paths[i].pts...)
		for first != last {
			found := false
			for j := range paths {
				if used[j] {
					continue
				}
				p := paths[j]
				switch last {
				case p.first:
					pts = append(pts, p.pts[1:]...)
					last = p.last
				case p.last:
					for k := len(p.pts) - 2; k >= 0; k-- {
						pts = append(pts, p.pts[k])
					}
					last = p.first
				default:
					continue
				}
				used[j] = true
				found = true
				break
			}
			if !found {
				break
			}
		}
		if first == last {
			rings = append(rings, pts)
		}
	}
	return rings
}

// validRing checks the minimal shape of a closed ring. With cleanup set,
// rings without area are rejected too.
func validRing(ring [][2]float64, cleanup bool) bool {
	if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
		return false
	}
	return !cleanup || geomhelp.Shoelace(ring) > 0
}

// orient returns the ring counterclockwise when ccw is set, clockwise otherwise.
func orient(ring [][2]float64, ccw bool) [][2]float64 {
	if (geomhelp.SignedArea(ring) > 0) == ccw {
		return ring
	}
	reversed := make([][2]float64, len(ring))
	for i := range ring {
		reversed[len(ring)-1-i] = ring[i]
	}
	return reversed
}

// ringInside reports whether inner lies within outer, judged on the first
// vertex of inner that is not on the boundary of outer.
func ringInside(inner, outer [][2]float64) bool {
	for _, pt := range inner {
		in, on := geomhelp.PointInRing(outer, pt)
		if on {
			continue
		}
		return in
	}
	return false
}

// nestRings turns a set of closed rings into polygons. Rings at even nesting
// depth become exteriors, rings at odd depth holes of the enclosing exterior.
func nestRings(rings [][][2]float64) geom.MultiPolygon {
	sort.SliceStable(rings, func(i, j int) bool {
		return geomhelp.Shoelace(rings[i]) > geomhelp.Shoelace(rings[j])
	})

	depth := make([]int, len(rings))
	polygonOf := make([]int, len(rings))
	var mp geom.MultiPolygon
	for i, ring := range rings {
		parent := -1
		for j := i - 1; j >= 0; j-- {
			if ringInside(ring, rings[j]) {
				parent = j
				break
			}
		}
		if parent >= 0 {
			depth[i] = depth[parent] + 1
		}
		if depth[i]%2 == 0 {
			mp = append(mp, geom.Polygon{orient(ring, true)})
			polygonOf[i] = len(mp) - 1
			continue
		}
		p := polygonOf[parent]
		mp[p] = append(mp[p], orient(ring, false))
		polygonOf[i] = -1
	}
	return mp
}
