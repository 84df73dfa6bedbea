package copymgr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/osmflex/pgsql"
)

type call struct {
	sql  string
	args []any
	data string
}

type fakeStore struct {
	mu      sync.Mutex
	calls   []call
	failOn  string
	closed  bool
	failErr error
}

func (s *fakeStore) Exec(_ context.Context, sql string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{sql: sql, args: args})
	if s.failOn != "" && s.failOn == sql {
		return s.failErr
	}
	return nil
}

func (s *fakeStore) CopyFrom(_ context.Context, sql string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{sql: sql, data: string(data)})
	if s.failOn != "" && s.failOn == sql {
		return s.failErr
	}
	return nil
}

func (s *fakeStore) Close(context.Context) error {
	s.closed = true
	return nil
}

func placeTarget() *TargetDescr {
	t := NewTargetDescr("public", "place", []string{"osm_id", "osm_type", "class", "name"})
	t.IDColumn = "osm_id"
	t.TypeColumn = "osm_type"
	t.ClassColumn = "class"
	return t
}

func addPlaceRow(t *testing.T, m *Manager, target *TargetDescr, id int64, class string) {
	t.Helper()
	l := m.NewLine(target)
	l.AddInt(id)
	l.AddText("N")
	l.AddText(class)
	l.AddHstore(map[string]string{"name": "x"})
	require.NoError(t, l.Finish())
}

func TestLine_Encoding(t *testing.T) {
	target := NewTargetDescr("", "t", []string{"a", "b", "c", "d", "e", "f", "g", "h"})
	store := &fakeStore{}
	th := NewThread(store, 1)
	m := NewManager(th, 0)

	l := m.NewLine(target)
	l.AddInt(-42)
	l.AddFloat(1.5)
	l.AddBool(true)
	l.AddText("tab\there\\ and\nnewline\r")
	l.AddNull()
	l.AddHstore(map[string]string{"name": `Say "hi"`, "alt": `back\slash`})
	l.AddHstore(nil)
	l.AddGeom([]byte{0x01, 0xab})
	require.NoError(t, l.Finish())
	require.NoError(t, m.Sync())
	require.NoError(t, th.Finish(context.Background()))

	require.Len(t, store.calls, 1)
	assert.Equal(t, `COPY "t" ("a","b","c","d","e","f","g","h") FROM STDIN`, store.calls[0].sql)
	want := "-42\t1.5\tt\ttab\\there\\\\ and\\nnewline\\r\t\\N\t" +
		`"alt"=>"back\\\\slash","name"=>"Say \\"hi\\""` +
		"\t\\N\t01AB\n"
	assert.Equal(t, want, store.calls[0].data)
	assert.True(t, store.closed)
}

func TestLine_ColumnCount(t *testing.T) {
	th := NewThread(&fakeStore{}, 1)
	m := NewManager(th, 0)
	l := m.NewLine(placeTarget())
	l.AddInt(1)
	err := l.Finish()
	assert.ErrorIs(t, err, ErrColumnCount)
	require.NoError(t, th.Finish(context.Background()))
}

func TestLine_Interleaved(t *testing.T) {
	store := &fakeStore{}
	th := NewThread(store, 1)
	m := NewManager(th, 0)
	target := NewTargetDescr("", "t", []string{"a"})

	first := m.NewLine(target)
	second := m.NewLine(target)
	first.AddInt(1)
	second.AddInt(2)
	require.NoError(t, second.Finish())
	require.NoError(t, first.Finish())
	assert.ErrorIs(t, first.Finish(), ErrLineFinished)
	require.NoError(t, m.Sync())
	require.NoError(t, th.Finish(context.Background()))

	require.Len(t, store.calls, 1)
	assert.Equal(t, "2\n1\n", store.calls[0].data)
}

func TestManager_DeleteBeforeInsertOrder(t *testing.T) {
	store := &fakeStore{}
	th := NewThread(store, 4)
	m := NewManager(th, 0)
	target := placeTarget()

	addPlaceRow(t, m, target, 1, "place")
	require.NoError(t, m.DeleteObjectExcept(target, "N", 2, []string{"amenity"}))
	addPlaceRow(t, m, target, 2, "amenity")
	require.NoError(t, m.DeleteObject(target, "N", 3))
	require.NoError(t, m.DeleteObject(target, "N", 4))
	require.NoError(t, m.DeleteObject(target, "W", 4))
	require.NoError(t, m.Sync())
	require.NoError(t, th.Finish(context.Background()))

	require.Len(t, store.calls, 5)
	copySQL := `COPY "public"."place" ("osm_id","osm_type","class","name") FROM STDIN`
	assert.Equal(t, copySQL, store.calls[0].sql)
	assert.Equal(t, "1\tN\tplace\t\"name\"=>\"x\"\n", store.calls[0].data)

	assert.Equal(t, `DELETE FROM "public"."place" WHERE "osm_type" = $1 AND "osm_id" = $2 AND "class" <> ALL($3)`, store.calls[1].sql)
	assert.Equal(t, []any{"N", int64(2), []string{"amenity"}}, store.calls[1].args)

	assert.Equal(t, copySQL, store.calls[2].sql)
	assert.Equal(t, "2\tN\tamenity\t\"name\"=>\"x\"\n", store.calls[2].data)

	assert.Equal(t, `DELETE FROM "public"."place" WHERE "osm_type" = $1 AND "osm_id" = ANY($2)`, store.calls[3].sql)
	assert.Equal(t, []any{"N", []int64{3, 4}}, store.calls[3].args)
	assert.Equal(t, []any{"W", []int64{4}}, store.calls[4].args)
}

func TestManager_ConsecutiveRowsShareCopy(t *testing.T) {
	store := &fakeStore{}
	th := NewThread(store, 1)
	m := NewManager(th, 0)
	target := placeTarget()
	for i := int64(1); i <= 3; i++ {
		addPlaceRow(t, m, target, i, "place")
	}
	require.NoError(t, m.Sync())
	require.NoError(t, th.Finish(context.Background()))

	require.Len(t, store.calls, 1)
	assert.Equal(t, 3, bytes.Count([]byte(store.calls[0].data), []byte("\n")))
}

func TestManager_TargetSwitchAndBufferSize(t *testing.T) {
	store := &fakeStore{}
	th := NewThread(store, 1)
	m := NewManager(th, 1)
	a := placeTarget()
	b := NewTargetDescr("public", "other", []string{"id"})
	b.IDColumn = "id"

	addPlaceRow(t, m, a, 1, "place")
	l := m.NewLine(b)
	l.AddInt(7)
	require.NoError(t, l.Finish())
	require.NoError(t, m.DeleteObject(b, "W", 8))
	require.NoError(t, m.Sync())
	require.NoError(t, th.Finish(context.Background()))

	require.Len(t, store.calls, 3)
	assert.Contains(t, store.calls[0].sql, `"place"`)
	assert.Equal(t, `COPY "public"."other" ("id") FROM STDIN`, store.calls[1].sql)
	assert.Equal(t, `DELETE FROM "public"."other" WHERE "id" = ANY($1)`, store.calls[2].sql)
	assert.Equal(t, []any{[]int64{8}}, store.calls[2].args)
}

func TestManager_DeleteErrors(t *testing.T) {
	th := NewThread(&fakeStore{}, 1)
	m := NewManager(th, 0)
	noID := NewTargetDescr("public", "t", []string{"a"})
	assert.ErrorIs(t, m.DeleteObject(noID, "N", 1), ErrNoIDColumn)

	noClass := NewTargetDescr("public", "t", []string{"id"})
	noClass.IDColumn = "id"
	assert.ErrorIs(t, m.DeleteObjectExcept(noClass, "N", 1, nil), ErrNoClassColumn)
	require.NoError(t, th.Finish(context.Background()))
}

func TestThread_StoreErrorIsSticky(t *testing.T) {
	target := placeTarget()
	boom := errors.New("connection lost")
	store := &fakeStore{failOn: target.copySQL(), failErr: boom}
	th := NewThread(store, 1)
	m := NewManager(th, 0)

	addPlaceRow(t, m, target, 1, "place")
	err := m.Sync()
	require.Error(t, err)
	var storeErr *pgsql.StoreError
	assert.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, err, boom)

	require.NoError(t, m.DeleteObject(target, "N", 1))
	assert.ErrorIs(t, m.Sync(), boom)
	assert.ErrorIs(t, th.Finish(context.Background()), boom)
	assert.Len(t, store.calls, 1, "commands after the failure are not applied")
	assert.NoError(t, th.Finish(context.Background()), "second finish is a no-op")
}
