// Package finalized is the finalized part of the chain state: an
// append-only, height ordered chain of validated blocks and the indices
// derived from it, kept in a store.DB.
//
// Writes are funneled through a single worker goroutine which owns the
// queue of blocks waiting for their parent and is the only caller of
// the commit pipeline. Reads go straight to the store and may run
// concurrently with each other and with a commit in flight.
package finalized

import (
	"sync"
	"sync/atomic"

	"github.com/blkchain/chainstate"
	"github.com/blkchain/chainstate/pending"
	"github.com/blkchain/chainstate/store"
)

type Config struct {
	// MaxQueued bounds the number of blocks held while their parent is
	// missing. Zero means no limit.
	MaxQueued int
}

// index is a tree together with its name, for error reporting.
type index struct {
	name string
	tree store.Tree
}

func (ix index) get(key []byte) ([]byte, error) {
	v, err := ix.tree.Get(key)
	if err != nil {
		return nil, &StoreError{Tree: ix.name, Op: "get", Err: err}
	}
	return v, nil
}

func (ix index) insert(key, value []byte) error {
	if _, err := ix.tree.Insert(key, value); err != nil {
		return &StoreError{Tree: ix.name, Op: "insert", Err: err}
	}
	return nil
}

func (ix index) last() ([]byte, []byte, error) {
	k, v, err := ix.tree.Last()
	if err != nil {
		return nil, nil, &StoreError{Tree: ix.name, Op: "last", Err: err}
	}
	return k, v, nil
}

type State struct {
	cfg Config

	hashByHeight    index
	heightByHash    index
	blockByHeight   index
	txByHash        index
	utxoByOutpoint  index
	spentByOutpoint index
	nullifiers      map[chainstate.ShieldedPool]index

	pending *pending.Outputs

	queueCh   chan *queuedBlock
	queueLen  atomic.Int64
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New opens the index trees in db and starts the commit worker. The
// caller keeps ownership of db and must Close the State before it.
func New(db store.DB, cfg Config) (*State, error) {
	initPrometheusMetrics()

	open := func(name string) (index, error) {
		t, err := db.Tree(name)
		if err != nil {
			return index{}, &StoreError{Tree: name, Op: "open", Err: err}
		}
		return index{name: name, tree: t}, nil
	}

	s := &State{
		cfg:        cfg,
		nullifiers: make(map[chainstate.ShieldedPool]index, len(shieldedPools)),
		pending:    pending.New(),
		queueCh:    make(chan *queuedBlock),
		quit:       make(chan struct{}),
	}

	for _, t := range []struct {
		ix   *index
		name string
	}{
		{&s.hashByHeight, hashByHeightTree},
		{&s.heightByHash, heightByHashTree},
		{&s.blockByHeight, blockByHeightTree},
		{&s.txByHash, txByHashTree},
		{&s.utxoByOutpoint, utxoByOutpointTree},
		{&s.spentByOutpoint, spentByOutpointTree},
	} {
		ix, err := open(t.name)
		if err != nil {
			return nil, err
		}
		*t.ix = ix
	}

	for pool, name := range map[chainstate.ShieldedPool]string{
		chainstate.SproutPool:  sproutNullifiersTree,
		chainstate.SaplingPool: saplingNullifiersTree,
	} {
		ix, err := open(name)
		if err != nil {
			return nil, err
		}
		s.nullifiers[pool] = ix
	}

	if tip, err := s.Tip(); err != nil {
		return nil, err
	} else if tip != nil {
		log.Infof("Finalized tip at height %d (%v)", tip.Height, tip.Hash)
		prometheusCommittedHeight.Set(float64(tip.Height))
	} else {
		log.Infof("Finalized state is empty")
	}

	s.wg.Add(1)
	go s.queueWorker()

	return s, nil
}

// Close stops the commit worker. Blocks still waiting for a parent are
// resolved with ErrClosed.
func (s *State) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
	return nil
}
