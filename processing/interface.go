package processing

import (
	"context"

	"github.com/pdok/osmflex/osm"
)

// Source produces the change stream. It closes changes when done.
type Source interface {
	ReadChanges(ctx context.Context, changes chan<- osm.Change) error
}

// Output receives every object after middle storage has been updated.
type Output interface {
	NodeAdd(node *osm.Node) error
	NodeModify(node *osm.Node) error
	NodeDelete(id int64) error
	WayAdd(way *osm.Way) error
	WayModify(way *osm.Way) error
	WayDelete(id int64) error
	RelationAdd(rel *osm.Relation) error
	RelationModify(rel *osm.Relation) error
	RelationDelete(id int64) error
}
