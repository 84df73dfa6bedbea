// Package osm holds the entity model handed to the loader: nodes, ways and
// relations with their tags, plus the change actions wrapping them.
package osm

import "math"

// ItemType is the kind of an entity. Undefined doubles as "any type" when used
// as the id filter of a table.
type ItemType int

const (
	Undefined ItemType = iota
	NodeType
	WayType
	RelationType
	AreaType
)

func (t ItemType) String() string {
	switch t {
	case NodeType:
		return "node"
	case WayType:
		return "way"
	case RelationType:
		return "relation"
	case AreaType:
		return "area"
	default:
		return "undefined"
	}
}

// TypeToChar returns the single character used for the type in id columns and
// delete keys. These characters are part of the stored data and must not change.
func TypeToChar(t ItemType) string {
	switch t {
	case NodeType:
		return "N"
	case WayType:
		return "W"
	case RelationType:
		return "R"
	case AreaType:
		return "A"
	default:
		return "X"
	}
}

// ParseItemType is the inverse of ItemType.String.
func ParseItemType(s string) (ItemType, bool) {
	switch s {
	case "node", "n", "N":
		return NodeType, true
	case "way", "w", "W":
		return WayType, true
	case "relation", "r", "R":
		return RelationType, true
	case "area":
		return AreaType, true
	}
	return Undefined, false
}

// Location is a WGS84 coordinate. The zero value is undefined.
type Location struct {
	Lon, Lat float64
	defined  bool
}

func NewLocation(lon, lat float64) Location {
	return Location{Lon: lon, Lat: lat, defined: true}
}

// Valid reports whether the location is defined and inside the WGS84 bounds.
func (l Location) Valid() bool {
	return l.defined && !math.IsNaN(l.Lon) && !math.IsNaN(l.Lat) &&
		l.Lon >= -180 && l.Lon <= 180 && l.Lat >= -90 && l.Lat <= 90
}

// Tags are the key/value attributes of an entity.
type Tags map[string]string

// Get returns the value for key, with ok false when the key is absent.
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

type Node struct {
	ID   int64
	Loc  Location
	Tags Tags
}

// WayNode is a node reference of a way. Loc is filled in by middle storage.
type WayNode struct {
	Ref int64
	Loc Location
}

type Way struct {
	ID    int64
	Nodes []WayNode
	Tags  Tags
}

// IsClosed reports whether the first and last node reference are the same.
func (w *Way) IsClosed() bool {
	return len(w.Nodes) > 2 && w.Nodes[0].Ref == w.Nodes[len(w.Nodes)-1].Ref
}

// NodeRefs returns the node ids of the way in order.
func (w *Way) NodeRefs() []int64 {
	refs := make([]int64, len(w.Nodes))
	for i := range w.Nodes {
		refs[i] = w.Nodes[i].Ref
	}
	return refs
}

// WayFromRefs builds a way with unresolved node locations.
func WayFromRefs(id int64, refs []int64, tags Tags) *Way {
	nodes := make([]WayNode, len(refs))
	for i, ref := range refs {
		nodes[i] = WayNode{Ref: ref}
	}
	return &Way{ID: id, Nodes: nodes, Tags: tags}
}

type Member struct {
	Type ItemType
	Ref  int64
	Role string
}

type Relation struct {
	ID      int64
	Members []Member
	Tags    Tags
}

// Action is what happened to an entity in the input stream.
type Action int

const (
	Create Action = iota
	Modify
	Delete
)

func (a Action) String() string {
	switch a {
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	default:
		return "create"
	}
}

// Change is one entry of the input stream. Exactly one of Node, Way and
// Relation is set.
type Change struct {
	Action   Action
	Node     *Node
	Way      *Way
	Relation *Relation
}

// Type returns the type of the entity carried by the change.
func (c Change) Type() ItemType {
	switch {
	case c.Node != nil:
		return NodeType
	case c.Way != nil:
		return WayType
	case c.Relation != nil:
		return RelationType
	}
	return Undefined
}

// ID returns the id of the entity carried by the change.
func (c Change) ID() int64 {
	switch {
	case c.Node != nil:
		return c.Node.ID
	case c.Way != nil:
		return c.Way.ID
	case c.Relation != nil:
		return c.Relation.ID
	}
	return 0
}
