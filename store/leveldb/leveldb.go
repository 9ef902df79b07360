// Package leveldb is the goleveldb backed index store. All trees share
// one database and are separated by a key prefix of the tree name and a
// zero byte.
package leveldb

import (
	"fmt"
	"sync"

	"github.com/blkchain/chainstate/store"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type Config struct {
	// Sync makes every insert wait for an fsync.
	Sync bool

	// Cache size in MiB, 0 leaves the goleveldb default.
	CacheSize int
}

type DB struct {
	db *leveldb.DB
	wo *opt.WriteOptions

	mu    sync.Mutex
	trees map[string]*tree
}

var _ store.DB = (*DB)(nil)

func Open(path string, cfg Config) (*DB, error) {
	o := &opt.Options{}
	if cfg.CacheSize > 0 {
		o.BlockCacheCapacity = cfg.CacheSize * opt.MiB
	}
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, err
	}
	log.Infof("Opened LevelDb at %s", path)
	return newDB(db, cfg), nil
}

// OpenMem returns a store that lives in memory only.
func OpenMem() (*DB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newDB(db, Config{}), nil
}

func newDB(db *leveldb.DB, cfg Config) *DB {
	return &DB{
		db:    db,
		wo:    &opt.WriteOptions{Sync: cfg.Sync},
		trees: make(map[string]*tree),
	}
}

func (d *DB) Tree(name string) (store.Tree, error) {
	if !store.ValidTreeName(name) {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidTreeName, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.trees[name]
	if !ok {
		prefix := append([]byte(name), 0)
		t = &tree{db: d, prefix: prefix}
		d.trees[name] = t
	}
	return t, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

type tree struct {
	db     *DB
	prefix []byte
}

func (t *tree) key(k []byte) []byte {
	result := make([]byte, len(t.prefix)+len(k))
	copy(result, t.prefix)
	copy(result[len(t.prefix):], k)
	return result
}

func (t *tree) Get(key []byte) ([]byte, error) {
	v, err := t.db.db.Get(t.key(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, err
}

func (t *tree) Insert(key, value []byte) ([]byte, error) {
	k := t.key(key)
	prev, err := t.db.db.Get(k, nil)
	if err == leveldb.ErrNotFound {
		prev, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := t.db.db.Put(k, value, t.db.wo); err != nil {
		return nil, err
	}
	return prev, nil
}

func (t *tree) Last() ([]byte, []byte, error) {
	iter := t.db.db.NewIterator(util.BytesPrefix(t.prefix), nil)
	defer iter.Release()

	if !iter.Last() {
		return nil, nil, iter.Error()
	}
	key := append([]byte(nil), iter.Key()[len(t.prefix):]...)
	value := append([]byte(nil), iter.Value()...)
	return key, value, nil
}

func (t *tree) ForEach(fn func(key, value []byte) bool) error {
	iter := t.db.db.NewIterator(util.BytesPrefix(t.prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if !fn(iter.Key()[len(t.prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}
