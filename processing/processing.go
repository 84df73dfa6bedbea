// Package processing takes care of the logistics around reading a change
// stream and handing it to an Output. Not the classification itself.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/pdok/osmflex/middle"
	"github.com/pdok/osmflex/osm"
)

// ErrNotAppending is returned for modify and delete changes on a fresh load.
var ErrNotAppending = errors.New("modify and delete changes need append mode")

const changeQueueLen = 1024

// Stats counts the processed changes per type and action.
type Stats struct {
	Nodes, Ways, Relations uint64
	Created                uint64
	Modified               uint64
	Deleted                uint64
}

func (s *Stats) count(c osm.Change) {
	switch c.Type() {
	case osm.NodeType:
		s.Nodes++
	case osm.WayType:
		s.Ways++
	case osm.RelationType:
		s.Relations++
	}
	switch c.Action {
	case osm.Create:
		s.Created++
	case osm.Modify:
		s.Modified++
	case osm.Delete:
		s.Deleted++
	}
}

func (s *Stats) log() {
	log.Printf("     nodes: %d", s.Nodes)
	log.Printf("      ways: %d", s.Ways)
	log.Printf(" relations: %d", s.Relations)
	log.Printf("   created: %d", s.Created)
	log.Printf("  modified: %d", s.Modified)
	log.Printf("   deleted: %d", s.Deleted)
}

// Run reads all changes from source and applies them, one at a time and in
// order, to store and output. The first error stops the run.
func Run(ctx context.Context, source Source, store middle.Store, output Output, appendMode bool) (Stats, error) {
	var stats Stats
	changes := make(chan osm.Change, changeQueueLen)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return source.ReadChanges(ctx, changes)
	})
	g.Go(func() error {
		for c := range changes {
			if err := apply(c, store, output, appendMode); err != nil {
				return fmt.Errorf("%s %s %d: %w", c.Action, c.Type(), c.ID(), err)
			}
			stats.count(c)
		}
		return nil
	})
	err := g.Wait()
	stats.log()
	return stats, err
}

func apply(c osm.Change, store middle.Store, output Output, appendMode bool) error {
	if c.Action != osm.Create && !appendMode {
		return ErrNotAppending
	}
	switch {
	case c.Node != nil:
		return applyNode(c.Action, c.Node, store, output)
	case c.Way != nil:
		return applyWay(c.Action, c.Way, store, output)
	case c.Relation != nil:
		return applyRelation(c.Action, c.Relation, output)
	}
	return errors.New("change without object")
}

func applyNode(action osm.Action, node *osm.Node, store middle.Store, output Output) error {
	if action == osm.Delete {
		if err := store.NodeDelete(node.ID); err != nil {
			return err
		}
		return output.NodeDelete(node.ID)
	}
	if err := store.NodeSet(node); err != nil {
		return err
	}
	if action == osm.Modify {
		return output.NodeModify(node)
	}
	return output.NodeAdd(node)
}

func applyWay(action osm.Action, way *osm.Way, store middle.Store, output Output) error {
	if action == osm.Delete {
		if err := store.WayDelete(way.ID); err != nil {
			return err
		}
		return output.WayDelete(way.ID)
	}
	if err := store.WaySet(way); err != nil {
		return err
	}
	if action == osm.Modify {
		return output.WayModify(way)
	}
	return output.WayAdd(way)
}

// relations are not kept in middle storage, nothing refers to them
func applyRelation(action osm.Action, rel *osm.Relation, output Output) error {
	switch action {
	case osm.Delete:
		return output.RelationDelete(rel.ID)
	case osm.Modify:
		return output.RelationModify(rel)
	}
	return output.RelationAdd(rel)
}
