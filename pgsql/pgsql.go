// Package pgsql wraps the PostgreSQL session used for DDL, lookups and COPY.
package pgsql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// StoreError is any failure reported by the database server or the session
// transport. Store errors are not retried.
type StoreError struct {
	SQL string
	Err error
}

func (e *StoreError) Error() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		msg := fmt.Sprintf("database error on %q: %s (SQLSTATE %s)", truncateSQL(e.SQL), pgErr.Message, pgErr.Code)
		if pgErr.Detail != "" {
			msg += ": " + pgErr.Detail
		}
		return msg
	}
	return fmt.Sprintf("database error on %q: %s", truncateSQL(e.SQL), e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func truncateSQL(sql string) string {
	const maxLen = 200
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "..."
}

// Conn is a single session to the database server.
type Conn struct {
	conn *pgx.Conn
}

// Connect opens a session using a libpq style connection string or URL.
func Connect(ctx context.Context, conninfo string) (*Conn, error) {
	conn, err := pgx.Connect(ctx, conninfo)
	if err != nil {
		return nil, &StoreError{SQL: "connect", Err: err}
	}
	return &Conn{conn: conn}, nil
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := c.conn.Exec(ctx, sql, args...); err != nil {
		return &StoreError{SQL: sql, Err: err}
	}
	return nil
}

// CopyFrom streams text format COPY data from r using the given COPY statement.
func (c *Conn) CopyFrom(ctx context.Context, sql string, r io.Reader) error {
	if _, err := c.conn.PgConn().CopyFrom(ctx, r, sql); err != nil {
		return &StoreError{SQL: sql, Err: err}
	}
	return nil
}

// Prepare creates a named server side prepared statement.
func (c *Conn) Prepare(ctx context.Context, name, sql string) error {
	if _, err := c.conn.Prepare(ctx, name, sql); err != nil {
		return &StoreError{SQL: sql, Err: err}
	}
	return nil
}

// QueryRow runs a query expected to return at most one row. sql may be the
// name of a prepared statement.
func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// QuoteIdent quotes an identifier for use in SQL text.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName returns the quoted schema.name of a table. An empty schema
// leaves the name unqualified.
func QualifiedName(schema, name string) string {
	if schema == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// TablespaceClause returns the TABLESPACE clause for tablespace, or an empty
// string for the default tablespace.
func TablespaceClause(tablespace string) string {
	if tablespace == "" {
		return ""
	}
	return " TABLESPACE " + QuoteIdent(tablespace)
}
