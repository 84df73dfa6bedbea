// Package copymgr streams rows into the database with COPY. Deletes travel
// through the same ordered queue as the rows so that a delete never overtakes
// an insert queued before it, or the other way around.
package copymgr

import (
	"strings"

	"github.com/pdok/osmflex/pgsql"
)

// TargetDescr describes the table a row or delete is meant for. It is built
// once per table and shared by every operation against it.
type TargetDescr struct {
	Schema string
	Name   string
	// Columns is the quoted, comma separated column list used for COPY.
	Columns    string
	NumColumns int
	// IDColumn holds the object id, TypeColumn the type character. Either
	// may be empty; deletes need IDColumn.
	IDColumn   string
	TypeColumn string
	// ClassColumn is needed for deletes that keep rows of certain classes.
	ClassColumn string
}

// NewTargetDescr builds a target from a column list.
func NewTargetDescr(schema, name string, columns []string) *TargetDescr {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgsql.QuoteIdent(c)
	}
	return &TargetDescr{
		Schema:     schema,
		Name:       name,
		Columns:    strings.Join(quoted, ","),
		NumColumns: len(columns),
	}
}

func (t *TargetDescr) FullName() string {
	return pgsql.QualifiedName(t.Schema, t.Name)
}

func (t *TargetDescr) copySQL() string {
	return "COPY " + t.FullName() + " (" + t.Columns + ") FROM STDIN"
}

func (t *TargetDescr) sameAs(other *TargetDescr) bool {
	return t == other || (other != nil && t.Schema == other.Schema && t.Name == other.Name)
}
