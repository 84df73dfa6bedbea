package gazetteer

import (
	"github.com/pdok/osmflex/copymgr"
	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/table"
)

// TableOptions place the place table in the database.
type TableOptions struct {
	Schema          string `default:"public"`
	Name            string `default:"place"`
	DataTablespace  string
	IndexTablespace string
}

var placeColumns = []struct {
	name, typ string
	notNull   bool
}{
	{"class", "text", true},
	{"type", "text", true},
	{"name", "hstore", false},
	{"admin_level", "smallint", false},
	{"address", "hstore", false},
	{"extratags", "hstore", false},
	{"geometry", "geometry", true},
}

// NewPlaceTable returns the initialized place table:
// (osm_id, osm_type, class, type, name, admin_level, address, extratags, geometry).
func NewPlaceTable(opts TableOptions, srid int, mgr *copymgr.Manager, appendMode bool) (*table.Table, error) {
	t := table.New(opts.Name, srid, mgr, appendMode)
	if opts.Schema != "" {
		t.SetSchema(opts.Schema)
	}
	t.SetDataTablespace(opts.DataTablespace)
	t.SetIndexTablespace(opts.IndexTablespace)

	if err := t.AddIDColumns(osm.Undefined, "osm_id", "osm_type"); err != nil {
		return nil, err
	}
	for _, c := range placeColumns {
		column, err := t.AddColumn(c.name, c.typ)
		if err != nil {
			return nil, err
		}
		column.NotNull = c.notNull
	}
	if err := t.SetClassColumn("class"); err != nil {
		return nil, err
	}
	if err := t.Init(); err != nil {
		return nil, err
	}
	return t, nil
}
