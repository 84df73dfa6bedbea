package middle

import (
	"github.com/pdok/osmflex/osm"
)

// RAM keeps everything in memory. It is not safe for concurrent use.
type RAM struct {
	nodes map[int64]osm.Location
	ways  map[int64][]int64
}

func NewRAM() *RAM {
	return &RAM{
		nodes: make(map[int64]osm.Location),
		ways:  make(map[int64][]int64),
	}
}

// NodeSet stores the node location. Nodes without a valid location are
// forgotten.
func (r *RAM) NodeSet(node *osm.Node) error {
	if !node.Loc.Valid() {
		delete(r.nodes, node.ID)
		return nil
	}
	r.nodes[node.ID] = node.Loc
	return nil
}

func (r *RAM) NodeDelete(id int64) error {
	delete(r.nodes, id)
	return nil
}

func (r *RAM) WaySet(way *osm.Way) error {
	r.ways[way.ID] = way.NodeRefs()
	return nil
}

func (r *RAM) WayDelete(id int64) error {
	delete(r.ways, id)
	return nil
}

func (r *RAM) NodesGetList(nodes []osm.WayNode) (int, error) {
	found := 0
	for i := range nodes {
		loc, ok := r.nodes[nodes[i].Ref]
		if !ok {
			continue
		}
		nodes[i].Loc = loc
		found++
	}
	return found, nil
}

func (r *RAM) RelWayMembersGet(rel *osm.Relation) ([]osm.Way, error) {
	return wayMembers(rel, func(id int64) ([]int64, bool, error) {
		refs, ok := r.ways[id]
		return refs, ok, nil
	})
}

func (r *RAM) Close() error {
	return nil
}
