// Package gazetteer turns nodes, ways and relations into rows of the place
// table, one row per class an object is classified under.
package gazetteer

import (
	"context"
	"log"

	"github.com/go-spatial/geom"

	"github.com/pdok/osmflex/geombuilder"
	"github.com/pdok/osmflex/geomhelp"
	"github.com/pdok/osmflex/middle"
	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/style"
	"github.com/pdok/osmflex/table"
)

const maxLogWKT = 120

// Output writes objects to the place table. It keeps no state between
// objects; each one is evaluated on its own.
type Output struct {
	place   *table.Table
	style   *style.Style
	mid     middle.Query
	builder *geombuilder.Builder
	verbose bool
}

func New(place *table.Table, st *style.Style, mid middle.Query, builder *geombuilder.Builder) *Output {
	return &Output{place: place, style: st, mid: mid, builder: builder}
}

// SetVerbose enables logging of objects that are classified but get no
// geometry.
func (o *Output) SetVerbose(verbose bool) {
	o.verbose = verbose
}

func (o *Output) Start(ctx context.Context, conninfo string) error {
	return o.place.Start(ctx, conninfo)
}

// Commit waits until everything queued is in the database.
func (o *Output) Commit() error {
	return o.place.Commit()
}

// Stop commits and finishes the place table. The (osm_type, osm_id) index is
// part of the place layout and is always built on a fresh load. The session
// is closed also when finishing fails.
func (o *Output) Stop(ctx context.Context) (err error) {
	defer func() {
		if tErr := o.place.Teardown(ctx); err == nil {
			err = tErr
		}
	}()
	if err = o.Commit(); err != nil {
		return err
	}
	return o.place.Stop(ctx, true)
}

// Teardown closes the session of the place table without finishing it.
func (o *Output) Teardown(ctx context.Context) error {
	return o.place.Teardown(ctx)
}

// deleteStale removes rows of classes the object no longer has. A fresh load
// starts from an empty table and has nothing to delete.
func (o *Output) deleteStale(itemType osm.ItemType, id int64, v *style.Verdict) error {
	if !o.place.Append() {
		return nil
	}
	return o.place.DeleteObjectExcept(itemType, id, v.ClassList())
}

func (o *Output) deleteFull(itemType osm.ItemType, id int64) error {
	if !o.place.Append() {
		return nil
	}
	return o.place.DeleteObject(itemType, id)
}

func (o *Output) copyOut(v *style.Verdict, itemType osm.ItemType, id int64, wkb []byte) error {
	newRow := func() style.Row { return o.place.NewLine() }
	return v.CopyOut(newRow, itemType, o.place.MapID(itemType, id), wkb)
}

func (o *Output) noGeometry(itemType osm.ItemType, id int64, g geom.Geometry) error {
	if o.verbose {
		if g != nil {
			log.Printf("no geometry for %s %d: %s", itemType, id, geomhelp.WktMustEncode(g, maxLogWKT))
		} else {
			log.Printf("no geometry for %s %d", itemType, id)
		}
	}
	return o.deleteFull(itemType, id)
}

func (o *Output) NodeAdd(node *osm.Node) error {
	return o.processNode(node)
}

func (o *Output) NodeModify(node *osm.Node) error {
	return o.processNode(node)
}

func (o *Output) NodeDelete(id int64) error {
	return o.deleteFull(osm.NodeType, id)
}

func (o *Output) processNode(node *osm.Node) error {
	v := o.style.Evaluate(node.Tags)
	if !v.HasData() {
		return o.deleteFull(osm.NodeType, node.ID)
	}
	if err := o.deleteStale(osm.NodeType, node.ID, v); err != nil {
		return err
	}
	wkb := o.builder.PointWKB(node.Loc)
	if wkb == nil {
		return o.noGeometry(osm.NodeType, node.ID, nil)
	}
	return o.copyOut(v, osm.NodeType, node.ID, wkb)
}

func (o *Output) WayAdd(way *osm.Way) error {
	return o.processWay(way)
}

func (o *Output) WayModify(way *osm.Way) error {
	return o.processWay(way)
}

func (o *Output) WayDelete(id int64) error {
	return o.deleteFull(osm.WayType, id)
}

func (o *Output) processWay(way *osm.Way) error {
	v := o.style.Evaluate(way.Tags)
	if !v.HasData() {
		return o.deleteFull(osm.WayType, way.ID)
	}
	if err := o.deleteStale(osm.WayType, way.ID, v); err != nil {
		return err
	}
	if _, err := o.mid.NodesGetList(way.Nodes); err != nil {
		return err
	}

	var wkb []byte
	if way.IsClosed() {
		wkb = o.builder.PolygonWKB(way.Nodes)
	}
	if wkb == nil {
		// a degenerate area is stored as a line
		if lines := o.builder.LineWKBs(way.Nodes, 0); len(lines) > 0 {
			wkb = lines[0]
		}
	}
	if wkb == nil {
		return o.noGeometry(osm.WayType, way.ID, wayLocations(way))
	}
	return o.copyOut(v, osm.WayType, way.ID, wkb)
}

func wayLocations(way *osm.Way) geom.Geometry {
	var line geom.LineString
	for _, n := range way.Nodes {
		if n.Loc.Valid() {
			line = append(line, [2]float64{n.Loc.Lon, n.Loc.Lat})
		}
	}
	if len(line) == 0 {
		return nil
	}
	return line
}

func (o *Output) RelationAdd(rel *osm.Relation) error {
	return o.processRelation(rel)
}

func (o *Output) RelationModify(rel *osm.Relation) error {
	return o.processRelation(rel)
}

func (o *Output) RelationDelete(id int64) error {
	return o.deleteFull(osm.RelationType, id)
}

// relationKind tells whether a relation can be stored and if so, whether as
// waterway.
func relationKind(rel *osm.Relation) (eligible, waterway bool) {
	switch typ, _ := rel.Tags.Get("type"); typ {
	case "associatedStreet":
		return false, false
	case "boundary", "multipolygon":
		return true, false
	case "waterway":
		return true, true
	}
	return false, false
}

func (o *Output) processRelation(rel *osm.Relation) error {
	eligible, waterway := relationKind(rel)
	if !eligible {
		return o.deleteFull(osm.RelationType, rel.ID)
	}
	v := o.style.Evaluate(rel.Tags)
	if !v.HasData() {
		return o.deleteFull(osm.RelationType, rel.ID)
	}
	if err := o.deleteStale(osm.RelationType, rel.ID, v); err != nil {
		return err
	}

	ways, err := o.mid.RelWayMembersGet(rel)
	if err != nil {
		return err
	}
	if len(ways) == 0 {
		return o.noGeometry(osm.RelationType, rel.ID, nil)
	}
	for i := range ways {
		if _, err = o.mid.NodesGetList(ways[i].Nodes); err != nil {
			return err
		}
	}

	var wkb []byte
	if waterway {
		wkb = o.builder.MultiLineWKB(ways, 0)
	} else {
		wkb = o.builder.MultiPolygonWKB(ways, true)
	}
	if wkb == nil {
		return o.noGeometry(osm.RelationType, rel.ID, nil)
	}
	return o.copyOut(v, osm.RelationType, rel.ID, wkb)
}
