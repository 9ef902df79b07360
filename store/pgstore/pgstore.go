// Package pgstore keeps the index trees in PostgreSQL, one table per
// tree. Keys are bytea primary keys, and Postgres orders bytea with a
// byte-wise comparison, which is the order the trees need.
package pgstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/blkchain/chainstate/store"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	ConnectString string
}

type DB struct {
	db *sqlx.DB

	mu    sync.Mutex
	trees map[string]*tree
}

var _ store.DB = (*DB)(nil)

func Open(cfg Config) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.ConnectString)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *DB {
	return &DB{
		db:    db,
		trees: make(map[string]*tree),
	}
}

func tableName(tree string) string {
	return "kv_" + tree
}

// Tree returns the named tree, creating its table if necessary.
func (d *DB) Tree(name string) (store.Tree, error) {
	if !store.ValidTreeName(name) {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidTreeName, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.trees[name]; ok {
		return t, nil
	}

	table := tableName(name)
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key BYTEA PRIMARY KEY, value BYTEA NOT NULL)", table)
	if _, err := d.db.Exec(stmt); err != nil {
		return nil, err
	}
	log.Debugf("Table %s ready", table)

	t := &tree{
		db:       d.db,
		getStmt:  fmt.Sprintf("SELECT value FROM %s WHERE key = $1", table),
		putStmt:  fmt.Sprintf("INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value", table),
		lastStmt: fmt.Sprintf("SELECT key, value FROM %s ORDER BY key DESC LIMIT 1", table),
		scanStmt: fmt.Sprintf("SELECT key, value FROM %s ORDER BY key", table),
	}
	d.trees[name] = t
	return t, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

type kvRow struct {
	Key   []byte `db:"key"`
	Value []byte `db:"value"`
}

type tree struct {
	db *sqlx.DB

	getStmt, putStmt, lastStmt, scanStmt string
}

func (t *tree) Get(key []byte) ([]byte, error) {
	var value []byte
	if err := t.db.Get(&value, t.getStmt, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// Insert reads the previous value and upserts in two statements. The
// index store has a single writer, so nothing can slip in between.
func (t *tree) Insert(key, value []byte) ([]byte, error) {
	prev, err := t.Get(key)
	if err != nil {
		return nil, err
	}
	if _, err := t.db.Exec(t.putStmt, key, value); err != nil {
		return nil, err
	}
	return prev, nil
}

func (t *tree) Last() ([]byte, []byte, error) {
	var row kvRow
	if err := t.db.Get(&row, t.lastStmt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return row.Key, row.Value, nil
}

func (t *tree) ForEach(fn func(key, value []byte) bool) error {
	rows, err := t.db.Queryx(t.scanStmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row kvRow
		if err := rows.StructScan(&row); err != nil {
			return err
		}
		if !fn(row.Key, row.Value) {
			break
		}
	}
	return rows.Err()
}
