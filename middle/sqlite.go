package middle

import (
	"database/sql"
	"errors"
	"fmt"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pdok/osmflex/osm"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes (id INTEGER PRIMARY KEY, lon REAL NOT NULL, lat REAL NOT NULL);
CREATE TABLE IF NOT EXISTS ways (id INTEGER PRIMARY KEY, nodes BLOB NOT NULL);`

// SQLite keeps node locations and way node lists in an SQLite file, so that
// it survives between a fresh load and later updates.
type SQLite struct {
	db *sql.DB

	nodeGet, nodeSet, nodeDelete *sql.Stmt
	wayGet, waySet, wayDelete    *sql.Stmt
}

// OpenSQLite opens or creates the middle file at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single connection, the statements below are not used concurrently
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating middle tables in %s: %w", path, err)
	}

	s := &SQLite{db: db}
	for _, p := range []struct {
		stmt **sql.Stmt
		sql  string
	}{
		{&s.nodeGet, "SELECT lon, lat FROM nodes WHERE id = ?"},
		{&s.nodeSet, "INSERT OR REPLACE INTO nodes (id, lon, lat) VALUES (?, ?, ?)"},
		{&s.nodeDelete, "DELETE FROM nodes WHERE id = ?"},
		{&s.wayGet, "SELECT nodes FROM ways WHERE id = ?"},
		{&s.waySet, "INSERT OR REPLACE INTO ways (id, nodes) VALUES (?, ?)"},
		{&s.wayDelete, "DELETE FROM ways WHERE id = ?"},
	} {
		if *p.stmt, err = db.Prepare(p.sql); err != nil {
			s.Close()
			return nil, fmt.Errorf("preparing %q: %w", p.sql, err)
		}
	}
	return s, nil
}

// NodeSet stores the node location. Nodes without a valid location are
// forgotten.
func (s *SQLite) NodeSet(node *osm.Node) error {
	if !node.Loc.Valid() {
		return s.NodeDelete(node.ID)
	}
	_, err := s.nodeSet.Exec(node.ID, node.Loc.Lon, node.Loc.Lat)
	return err
}

func (s *SQLite) NodeDelete(id int64) error {
	_, err := s.nodeDelete.Exec(id)
	return err
}

func (s *SQLite) WaySet(way *osm.Way) error {
	b, err := msgpack.Marshal(way.NodeRefs())
	if err != nil {
		return err
	}
	_, err = s.waySet.Exec(way.ID, b)
	return err
}

func (s *SQLite) WayDelete(id int64) error {
	_, err := s.wayDelete.Exec(id)
	return err
}

func (s *SQLite) NodesGetList(nodes []osm.WayNode) (int, error) {
	found := 0
	for i := range nodes {
		var lon, lat float64
		err := s.nodeGet.QueryRow(nodes[i].Ref).Scan(&lon, &lat)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return found, err
		}
		nodes[i].Loc = osm.NewLocation(lon, lat)
		found++
	}
	return found, nil
}

func (s *SQLite) RelWayMembersGet(rel *osm.Relation) ([]osm.Way, error) {
	return wayMembers(rel, s.wayRefs)
}

func (s *SQLite) wayRefs(id int64) ([]int64, bool, error) {
	var b []byte
	err := s.wayGet.QueryRow(id).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var refs []int64
	if err = msgpack.Unmarshal(b, &refs); err != nil {
		return nil, false, fmt.Errorf("decoding nodes of way %d: %w", id, err)
	}
	return refs, true, nil
}

func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.nodeGet, s.nodeSet, s.nodeDelete, s.wayGet, s.waySet, s.wayDelete} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
