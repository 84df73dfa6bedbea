package table

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/pgsql"
)

// Session is the database session a table uses for DDL and lookups. Rows
// and deletes go through the copy manager instead.
type Session interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Prepare(ctx context.Context, name, sql string) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Dialer opens a Session for conninfo.
type Dialer func(ctx context.Context, conninfo string) (Session, error)

func dialPostgres(ctx context.Context, conninfo string) (Session, error) {
	conn, err := pgsql.Connect(ctx, conninfo)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect opens the table's own session and lowers the message level so
// that notices about e.g. missing tables stay quiet.
func (t *Table) Connect(ctx context.Context, conninfo string) error {
	if t.session != nil {
		return fmt.Errorf("%w: %s is already connected", ErrConfig, t.name)
	}
	session, err := t.dial(ctx, conninfo)
	if err != nil {
		return err
	}
	t.session = session
	return t.session.Exec(ctx, "SET client_min_messages = WARNING")
}

func (t *Table) exec(ctx context.Context, sql string, args ...any) error {
	if t.session == nil {
		return fmt.Errorf("%w: %s is not connected", ErrConfig, t.name)
	}
	return t.session.Exec(ctx, sql, args...)
}

// Start connects and makes sure the table is there. When not appending any
// existing table is replaced by an empty interim table.
func (t *Table) Start(ctx context.Context, conninfo string) error {
	if !t.frozen() {
		return fmt.Errorf("%w: %s is not initialized", ErrConfig, t.name)
	}
	if err := t.Connect(ctx, conninfo); err != nil {
		return err
	}
	// leftover from an interrupted import
	if err := t.exec(ctx, "DROP TABLE IF EXISTS "+t.fullTmpName()); err != nil {
		return err
	}
	if !t.appendMode {
		if err := t.exec(ctx, "DROP TABLE IF EXISTS "+t.fullName()+" CASCADE"); err != nil {
			return err
		}
		if err := t.exec(ctx, t.BuildSQLCreateTable(false)); err != nil {
			return err
		}
		return nil
	}
	if t.HasIDColumn() && t.HasGeomColumn() {
		return t.Prepare(ctx)
	}
	return nil
}

// Prepare creates the statement used by GetGeomByID.
func (t *Table) Prepare(ctx context.Context) error {
	if !t.HasIDColumn() {
		return fmt.Errorf("%w: %s has no id column to look up", ErrConfig, t.name)
	}
	if !t.HasGeomColumn() {
		return fmt.Errorf("%w: %s has no geometry column to look up", ErrConfig, t.name)
	}
	if t.session == nil {
		return fmt.Errorf("%w: %s is not connected", ErrConfig, t.name)
	}
	if err := t.session.Prepare(ctx, t.prepareName(), t.BuildSQLPrepareGetWKB()); err != nil {
		return err
	}
	t.prepared = true
	return nil
}

// Stop finishes the table. A freshly built table is copied into its final,
// logged form, ordered by geometry, and indexed. The id index is only built
// when the table is going to be updated later on.
func (t *Table) Stop(ctx context.Context, updateable bool) error {
	if t.session == nil {
		return fmt.Errorf("%w: %s is not connected", ErrConfig, t.name)
	}
	if !t.appendMode {
		if err := t.finalize(ctx); err != nil {
			return err
		}
		if updateable && t.HasIDColumn() {
			if err := t.CreateIDIndex(ctx); err != nil {
				return err
			}
		}
	}
	log.Printf("Analyzing table %s", t.name)
	return t.exec(ctx, "ANALYZE "+t.fullName())
}

func (t *Table) finalize(ctx context.Context) error {
	columns := t.BuildSQLColumnList()
	insert := "INSERT INTO " + t.fullTmpName() + " (" + columns + ") SELECT " + columns + " FROM " + t.fullName()
	if geom := t.GeomColumn(); geom != nil {
		log.Printf("Clustering table %s by geometry", t.name)
		insert += " ORDER BY " + pgsql.QuoteIdent(geom.Name)
	}
	statements := []string{
		t.BuildSQLCreateTable(true),
		insert,
		"DROP TABLE " + t.fullName(),
		"ALTER TABLE " + t.fullTmpName() + " RENAME TO " + pgsql.QuoteIdent(t.name),
	}
	if geom := t.GeomColumn(); geom != nil {
		log.Printf("Creating geometry index on table %s", t.name)
		statements = append(statements, "CREATE INDEX ON "+t.fullName()+" USING GIST ("+pgsql.QuoteIdent(geom.Name)+")"+
			pgsql.TablespaceClause(t.indexTablespace))
	}
	for _, sql := range statements {
		if err := t.exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

// CreateIDIndex creates the non-unique index over the id columns.
func (t *Table) CreateIDIndex(ctx context.Context) error {
	if !t.HasIDColumn() {
		return fmt.Errorf("%w: %s has no id column to index", ErrConfig, t.name)
	}
	log.Printf("Creating id index on table %s", t.name)
	return t.exec(ctx, "CREATE INDEX ON "+t.fullName()+" USING BTREE ("+strings.Join(t.idColumnNames(), ",")+")"+
		pgsql.TablespaceClause(t.indexTablespace))
}

func (t *Table) idCondition(itemType osm.ItemType, id int64) (string, []any) {
	var num, typ string
	for _, c := range t.Columns() {
		switch c.Kind {
		case IDNum:
			num = c.Name
		case IDType:
			typ = c.Name
		}
	}
	sql := pgsql.QuoteIdent(num) + " = $1"
	args := []any{t.MapID(itemType, id)}
	if typ != "" {
		sql += " AND " + pgsql.QuoteIdent(typ) + " = $2"
		args = append(args, osm.TypeToChar(itemType))
	}
	return sql, args
}

// DeleteRowsWith removes the rows of an object right away on the table's
// own session, bypassing the copy queue.
func (t *Table) DeleteRowsWith(ctx context.Context, itemType osm.ItemType, id int64) error {
	if !t.HasIDColumn() {
		return fmt.Errorf("%w: %s has no id column", ErrConfig, t.name)
	}
	cond, args := t.idCondition(itemType, id)
	return t.exec(ctx, "DELETE FROM "+t.fullName()+" WHERE "+cond, args...)
}

// GetGeomByID returns the stored geometry of an object as EWKB, nil when the
// object has no row.
func (t *Table) GetGeomByID(ctx context.Context, itemType osm.ItemType, id int64) ([]byte, error) {
	if !t.prepared {
		return nil, fmt.Errorf("%w: %s has no prepared geometry lookup", ErrConfig, t.name)
	}
	_, args := t.idCondition(itemType, id)
	var wkb []byte
	err := t.session.QueryRow(ctx, t.prepareName(), args...).Scan(&wkb)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &pgsql.StoreError{SQL: t.prepareName(), Err: err}
	}
	return wkb, nil
}

// Teardown closes the table's session.
func (t *Table) Teardown(ctx context.Context) error {
	if t.session == nil {
		return nil
	}
	err := t.session.Close(ctx)
	t.session = nil
	t.prepared = false
	return err
}
