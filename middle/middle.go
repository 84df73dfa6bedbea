// Package middle keeps node locations and way node lists so that ways and
// relations can be given geometries.
package middle

import (
	"github.com/pdok/osmflex/osm"
)

// Query resolves the members of ways and relations.
type Query interface {
	// NodesGetList fills in the locations of nodes in place and returns how
	// many were found. Unknown nodes keep an undefined location.
	NodesGetList(nodes []osm.WayNode) (int, error)
	// RelWayMembersGet returns the member ways of rel that are known, in
	// member order, with node locations not yet resolved.
	RelWayMembersGet(rel *osm.Relation) ([]osm.Way, error)
}

// Store is a Query that is kept up to date with the change stream.
type Store interface {
	Query
	NodeSet(node *osm.Node) error
	NodeDelete(id int64) error
	WaySet(way *osm.Way) error
	WayDelete(id int64) error
	Close() error
}

func wayMembers(rel *osm.Relation, get func(id int64) ([]int64, bool, error)) ([]osm.Way, error) {
	var ways []osm.Way
	for _, m := range rel.Members {
		if m.Type != osm.WayType {
			continue
		}
		refs, ok, err := get(m.Ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ways = append(ways, *osm.WayFromRefs(m.Ref, refs, nil))
	}
	return ways, nil
}
