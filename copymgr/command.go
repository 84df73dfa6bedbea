package copymgr

import (
	"fmt"
	"strings"

	"github.com/pdok/osmflex/pgsql"
)

// deleteKey identifies the rows of one object. With except set, rows whose
// class is in keep survive.
type deleteKey struct {
	typeChar string
	id       int64
	except   bool
	keep     []string
}

// entry is one element of the ordered queue: either COPY data for one or
// more consecutive rows, or a delete.
type entry struct {
	rows []byte
	del  *deleteKey
}

// copyCmd holds the queued operations for a single target.
type copyCmd struct {
	target  *TargetDescr
	entries []entry
	size    int
}

func (c *copyCmd) addRow(row []byte) {
	if n := len(c.entries); n > 0 && c.entries[n-1].del == nil {
		c.entries[n-1].rows = append(c.entries[n-1].rows, row...)
	} else {
		c.entries = append(c.entries, entry{rows: append([]byte(nil), row...)})
	}
	c.size += len(row)
}

func (c *copyCmd) addDelete(k deleteKey) {
	c.entries = append(c.entries, entry{del: &k})
	c.size += 16 + len(k.typeChar)
}

func (c *copyCmd) empty() bool {
	return len(c.entries) == 0
}

type statement struct {
	sql  string
	args []any
}

// deleteStatements turns a run of deletes into SQL. Unconditional deletes of
// the same type that follow each other share one statement.
func deleteStatements(t *TargetDescr, keys []deleteKey) []statement {
	var stmts []statement
	var ids []int64
	var idsType string

	flushIDs := func() {
		if len(ids) == 0 {
			return
		}
		where, args := typeCondition(t, idsType)
		args = append(args, ids)
		where = append(where, fmt.Sprintf("%s = ANY($%d)", pgsql.QuoteIdent(t.IDColumn), len(args)))
		stmts = append(stmts, statement{sql: deleteSQL(t, where), args: args})
		ids = nil
	}

	for _, k := range keys {
		if k.except {
			flushIDs()
			where, args := typeCondition(t, k.typeChar)
			args = append(args, k.id)
			where = append(where, fmt.Sprintf("%s = $%d", pgsql.QuoteIdent(t.IDColumn), len(args)))
			args = append(args, k.keep)
			where = append(where, fmt.Sprintf("%s <> ALL($%d)", pgsql.QuoteIdent(t.ClassColumn), len(args)))
			stmts = append(stmts, statement{sql: deleteSQL(t, where), args: args})
			continue
		}
		if len(ids) > 0 && idsType != k.typeChar {
			flushIDs()
		}
		idsType = k.typeChar
		ids = append(ids, k.id)
	}
	flushIDs()
	return stmts
}

func typeCondition(t *TargetDescr, typeChar string) ([]string, []any) {
	if t.TypeColumn == "" {
		return nil, nil
	}
	return []string{pgsql.QuoteIdent(t.TypeColumn) + " = $1"}, []any{typeChar}
}

func deleteSQL(t *TargetDescr, where []string) string {
	return "DELETE FROM " + t.FullName() + " WHERE " + strings.Join(where, " AND ")
}
