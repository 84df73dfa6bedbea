// Package table describes output tables: their columns, how object ids are
// stored, the SQL to create and query them, and their life cycle during a
// load.
package table

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/osmflex/copymgr"
	"github.com/pdok/osmflex/mapslicehelp"
	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/pgsql"
)

// ErrConfig marks a table set up or used against its contract.
var ErrConfig = errors.New("invalid table configuration")

const noGeomColumn = -1

// Table is an output table in the SQL sense.
type Table struct {
	name            string
	schema          string
	dataTablespace  string
	indexTablespace string

	// columns in table order, the first zero, one or two are the id columns
	columns    *orderedmap.OrderedMap[string, *Column]
	geomColumn int
	// idType is the kind of objects stored, Undefined for any kind
	idType      osm.ItemType
	classColumn string
	srid        int
	appendMode  bool

	mgr      *copymgr.Manager
	target   *copymgr.TargetDescr
	session  Session
	prepared bool
	dial     Dialer
}

// New creates an empty table in the public schema. appendMode fixes whether
// the table is updated in place or built from scratch.
func New(name string, srid int, mgr *copymgr.Manager, appendMode bool) *Table {
	return &Table{
		name:       name,
		schema:     "public",
		columns:    orderedmap.New[string, *Column](),
		geomColumn: noGeomColumn,
		srid:       srid,
		appendMode: appendMode,
		mgr:        mgr,
		dial:       dialPostgres,
	}
}

// SetDialer replaces the way the table opens its session. The default
// connects to PostgreSQL.
func (t *Table) SetDialer(d Dialer) { t.dial = d }

func (t *Table) Name() string { return t.name }

func (t *Table) Schema() string { return t.schema }

func (t *Table) SetSchema(schema string) { t.schema = schema }

func (t *Table) DataTablespace() string { return t.dataTablespace }

func (t *Table) SetDataTablespace(tablespace string) { t.dataTablespace = tablespace }

func (t *Table) IndexTablespace() string { return t.indexTablespace }

func (t *Table) SetIndexTablespace(tablespace string) { t.indexTablespace = tablespace }

func (t *Table) IDType() osm.ItemType { return t.idType }

func (t *Table) SRID() int { return t.srid }

func (t *Table) Append() bool { return t.appendMode }

func (t *Table) frozen() bool { return t.target != nil }

// AddIDColumns declares the id columns. It has to come before any other
// column. Tables for a single object type get one number column, area tables
// and tables for any type get a number column followed by a type column.
func (t *Table) AddIDColumns(idType osm.ItemType, idName, typeName string) error {
	if t.frozen() || t.columns.Len() > 0 {
		return fmt.Errorf("%w: id columns of %s must be added first", ErrConfig, t.name)
	}
	if idName == "" {
		return fmt.Errorf("%w: id column of %s needs a name", ErrConfig, t.name)
	}
	t.idType = idType
	t.columns.Set(idName, &Column{Name: idName, Kind: IDNum, NotNull: true})
	if idType == osm.AreaType || idType == osm.Undefined {
		if typeName == "" {
			typeName = "osm_type"
		}
		if _, dup := t.columns.Get(typeName); dup {
			return fmt.Errorf("%w: duplicate column %q in %s", ErrConfig, typeName, t.name)
		}
		t.columns.Set(typeName, &Column{Name: typeName, Kind: IDType, NotNull: true})
	}
	return nil
}

// AddColumn appends a column. typeSpec is one of the kind names or
// "sql:<type>" for a column with a literal store type.
func (t *Table) AddColumn(name, typeSpec string) (*Column, error) {
	if t.frozen() {
		return nil, fmt.Errorf("%w: %s is initialized, cannot add column %q", ErrConfig, t.name, name)
	}
	if _, dup := t.columns.Get(name); dup {
		return nil, fmt.Errorf("%w: duplicate column %q in %s", ErrConfig, name, t.name)
	}
	column := &Column{Name: name}
	if sqlType, ok := strings.CutPrefix(typeSpec, "sql:"); ok {
		if sqlType == "" {
			return nil, fmt.Errorf("%w: column %q needs an SQL type", ErrConfig, name)
		}
		column.Kind = SQL
		column.SQLTypeName = sqlType
	} else {
		kind, err := ParseKind(typeSpec)
		if err != nil {
			return nil, err
		}
		column.Kind = kind
	}
	if column.Kind.IsID() {
		return nil, fmt.Errorf("%w: use AddIDColumns for id column %q", ErrConfig, name)
	}
	if column.Kind == SQL && column.SQLTypeName == "" {
		return nil, fmt.Errorf("%w: column %q needs an SQL type", ErrConfig, name)
	}
	if column.Kind.IsGeometry() {
		if t.HasGeomColumn() {
			return nil, fmt.Errorf("%w: %s already has geometry column %q", ErrConfig, t.name, t.GeomColumn().Name)
		}
		t.geomColumn = t.columns.Len()
	}
	t.columns.Set(name, column)
	return column, nil
}

// SetClassColumn names the column deletes can filter on to keep rows of
// certain classes.
func (t *Table) SetClassColumn(name string) error {
	if t.frozen() {
		return fmt.Errorf("%w: %s is initialized", ErrConfig, t.name)
	}
	if _, ok := t.columns.Get(name); !ok {
		return fmt.Errorf("%w: no column %q in %s", ErrConfig, name, t.name)
	}
	t.classColumn = name
	return nil
}

// Init freezes the columns and builds the target used by every row and
// delete of this table.
func (t *Table) Init() error {
	if t.frozen() {
		return fmt.Errorf("%w: %s is already initialized", ErrConfig, t.name)
	}
	if t.columns.Len() == 0 {
		return fmt.Errorf("%w: %s has no columns", ErrConfig, t.name)
	}
	target := copymgr.NewTargetDescr(t.schema, t.name, mapslicehelp.OrderedMapKeys(t.columns))
	for _, c := range t.Columns() {
		switch c.Kind {
		case IDNum:
			target.IDColumn = c.Name
		case IDType:
			target.TypeColumn = c.Name
		}
	}
	target.ClassColumn = t.classColumn
	t.target = target
	return nil
}

// Target returns the target built by Init, nil before.
func (t *Table) Target() *copymgr.TargetDescr { return t.target }

func (t *Table) NumColumns() int { return t.columns.Len() }

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column {
	return mapslicehelp.OrderedMapValues(t.columns)
}

func (t *Table) Column(name string) (*Column, bool) {
	return t.columns.Get(name)
}

func (t *Table) HasIDColumn() bool {
	oldest := t.columns.Oldest()
	return oldest != nil && oldest.Value.Kind.IsID()
}

func (t *Table) HasGeomColumn() bool {
	return t.geomColumn != noGeomColumn
}

// GeomColumn returns the geometry column, nil when there is none.
func (t *Table) GeomColumn() *Column {
	if !t.HasGeomColumn() {
		return nil
	}
	return t.Columns()[t.geomColumn]
}

// MatchesType reports whether objects of the given type go into this table.
// Area tables take everything but nodes.
func (t *Table) MatchesType(itemType osm.ItemType) bool {
	if t.idType == osm.Undefined {
		return true
	}
	if itemType == t.idType {
		return true
	}
	return t.idType == osm.AreaType && itemType != osm.NodeType
}

// MapID maps an object id to the value stored in the id column. Areas built
// from relations get the negated relation id.
func (t *Table) MapID(itemType osm.ItemType, id int64) int64 {
	if t.idType == osm.AreaType && itemType == osm.RelationType {
		return -id
	}
	return id
}

// HasMulticolumnIDIndex is true for area tables and tables of any type, both
// of which store the object type next to the id.
func (t *Table) HasMulticolumnIDIndex() bool {
	for _, c := range t.Columns() {
		if c.Kind == IDType {
			return true
		}
	}
	return false
}

// idColumnNames lists the id columns for indexing, type column first.
func (t *Table) idColumnNames() []string {
	var num, typ []string
	for _, c := range t.Columns() {
		switch c.Kind {
		case IDNum:
			num = append(num, pgsql.QuoteIdent(c.Name))
		case IDType:
			typ = append(typ, pgsql.QuoteIdent(c.Name))
		}
	}
	return append(typ, num...)
}

func (t *Table) fullName() string {
	return pgsql.QualifiedName(t.schema, t.name)
}

func (t *Table) tmpName() string {
	return t.name + "_tmp"
}

func (t *Table) fullTmpName() string {
	return pgsql.QualifiedName(t.schema, t.tmpName())
}

// BuildSQLCreateTable returns the CREATE TABLE statement. The interim table
// (final false) is unlogged and without autovacuum, the final table is the
// permanent copy created under the temporary name when the load finishes.
func (t *Table) BuildSQLCreateTable(final bool) string {
	defs := make([]string, 0, t.columns.Len())
	for _, c := range t.Columns() {
		defs = append(defs, c.SQLCreate(t.srid))
	}

	var sql string
	if final {
		sql = "CREATE TABLE IF NOT EXISTS " + t.fullTmpName() + " (" + strings.Join(defs, ",") + ")"
	} else {
		sql = "CREATE UNLOGGED TABLE IF NOT EXISTS " + t.fullName() + " (" + strings.Join(defs, ",") + ")" +
			" WITH (autovacuum_enabled = off)"
	}
	return sql + pgsql.TablespaceClause(t.dataTablespace)
}

// BuildSQLColumnList returns the quoted column names in table order.
func (t *Table) BuildSQLColumnList() string {
	names := make([]string, 0, t.columns.Len())
	for _, c := range t.Columns() {
		names = append(names, pgsql.QuoteIdent(c.Name))
	}
	return strings.Join(names, ",")
}

// BuildSQLPrepareGetWKB returns the query fetching the geometry of an object
// as EWKB, with the mapped id as first and the type character as second
// parameter.
func (t *Table) BuildSQLPrepareGetWKB() string {
	var num, typ string
	for _, c := range t.Columns() {
		switch c.Kind {
		case IDNum:
			num = c.Name
		case IDType:
			typ = c.Name
		}
	}
	geom := ""
	if c := t.GeomColumn(); c != nil {
		geom = c.Name
	}
	sql := "SELECT ST_AsEWKB(" + pgsql.QuoteIdent(geom) + ") FROM " + t.fullName() +
		" WHERE " + pgsql.QuoteIdent(num) + " = $1"
	if typ != "" {
		sql += " AND " + pgsql.QuoteIdent(typ) + " = $2"
	}
	return sql
}

func (t *Table) prepareName() string {
	return "get_wkb_" + t.name
}

// NewLine starts a row of this table on the copy manager.
func (t *Table) NewLine() *copymgr.Line {
	return t.mgr.NewLine(t.target)
}

// DeleteObject queues the removal of all rows of the object.
func (t *Table) DeleteObject(itemType osm.ItemType, id int64) error {
	return t.mgr.DeleteObject(t.target, osm.TypeToChar(itemType), t.MapID(itemType, id))
}

// DeleteObjectExcept queues the removal of the rows of the object whose class
// is not in keep.
func (t *Table) DeleteObjectExcept(itemType osm.ItemType, id int64, keep []string) error {
	return t.mgr.DeleteObjectExcept(t.target, osm.TypeToChar(itemType), t.MapID(itemType, id), keep)
}

// Commit waits until all rows and deletes queued so far are in the database.
func (t *Table) Commit() error {
	return t.mgr.Sync()
}
