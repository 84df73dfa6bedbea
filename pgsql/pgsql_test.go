package pgsql

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"place"`, QuoteIdent("place"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
	assert.Equal(t, `"public"."place"`, QualifiedName("public", "place"))
	assert.Equal(t, `"place"`, QualifiedName("", "place"))
	assert.Equal(t, "", TablespaceClause(""))
	assert.Equal(t, ` TABLESPACE "fast"`, TablespaceClause("fast"))
}

func TestStoreError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "place" does not exist`, Detail: "some detail"}
	err := error(&StoreError{SQL: "DELETE FROM place", Err: pgErr})

	assert.Equal(t, `database error on "DELETE FROM place": relation "place" does not exist (SQLSTATE 42P01): some detail`, err.Error())

	var storeErr *StoreError
	assert.True(t, errors.As(err, &storeErr))
	var unwrapped *pgconn.PgError
	assert.True(t, errors.As(err, &unwrapped))

	plain := &StoreError{SQL: strings.Repeat("x", 300), Err: errors.New("boom")}
	assert.Contains(t, plain.Error(), "...")
	assert.Contains(t, plain.Error(), "boom")
}
