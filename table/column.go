package table

import (
	"fmt"
	"strings"

	"github.com/pdok/osmflex/pgsql"
)

// Kind is the closed set of column types a table can declare. Store types are
// derived from it only when SQL is generated.
type Kind int

const (
	Text Kind = iota
	Boolean
	Int2
	Int4
	Int8
	Real
	Hstore
	JSON
	JSONB
	Direction
	Geometry
	Point
	LineString
	Polygon
	MultiLineString
	MultiPolygon
	AreaKind
	IDType
	IDNum
	SQL
)

var kindNames = map[string]Kind{
	"text":            Text,
	"boolean":         Boolean,
	"bool":            Boolean,
	"int2":            Int2,
	"smallint":        Int2,
	"int4":            Int4,
	"int":             Int4,
	"integer":         Int4,
	"int8":            Int8,
	"bigint":          Int8,
	"real":            Real,
	"float":           Real,
	"hstore":          Hstore,
	"json":            JSON,
	"jsonb":           JSONB,
	"direction":       Direction,
	"geometry":        Geometry,
	"point":           Point,
	"linestring":      LineString,
	"polygon":         Polygon,
	"multilinestring": MultiLineString,
	"multipolygon":    MultiPolygon,
	"area":            AreaKind,
	"id_type":         IDType,
	"id_num":          IDNum,
	"sql":             SQL,
}

// ParseKind maps a type name to its kind. Names are case insensitive.
func ParseKind(name string) (Kind, error) {
	k, ok := kindNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown column type %q", ErrConfig, name)
	}
	return k, nil
}

// IsGeometry reports whether the kind holds geometries.
func (k Kind) IsGeometry() bool {
	switch k {
	case Geometry, Point, LineString, Polygon, MultiLineString, MultiPolygon, AreaKind:
		return true
	}
	return false
}

// IsID reports whether the kind is one of the identity kinds.
func (k Kind) IsID() bool {
	return k == IDType || k == IDNum
}

func (k Kind) geometryTypeName() string {
	switch k {
	case Point:
		return "Point"
	case LineString:
		return "LineString"
	case Polygon:
		return "Polygon"
	case MultiLineString:
		return "MultiLineString"
	case MultiPolygon, AreaKind:
		return "MultiPolygon"
	}
	return "Geometry"
}

// Column is one column of an output table.
type Column struct {
	Name string
	Kind Kind
	// SQLTypeName overrides the store type. Required for the SQL kind.
	SQLTypeName string
	NotNull     bool
}

// SQLType returns the store type of the column.
func (c *Column) SQLType(srid int) string {
	if c.SQLTypeName != "" {
		return c.SQLTypeName
	}
	switch c.Kind {
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Int2:
		return "int2"
	case Int4:
		return "int4"
	case Int8, IDNum:
		return "int8"
	case Real:
		return "real"
	case Hstore:
		return "hstore"
	case JSON:
		return "json"
	case JSONB:
		return "jsonb"
	case Direction:
		return "int2"
	case IDType:
		return "char(1)"
	}
	if c.Kind.IsGeometry() {
		return fmt.Sprintf("Geometry(%s,%d)", c.Kind.geometryTypeName(), srid)
	}
	return "text"
}

// SQLCreate returns the column definition used in CREATE TABLE.
func (c *Column) SQLCreate(srid int) string {
	def := pgsql.QuoteIdent(c.Name) + " " + c.SQLType(srid)
	if c.NotNull {
		def += " NOT NULL"
	}
	return def
}
