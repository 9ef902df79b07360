package finalized

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/blkchain/chainstate"
	"github.com/blkchain/chainstate/store"
	"github.com/blkchain/chainstate/store/leveldb"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T, cfg Config) *State {
	db, err := leveldb.OpenMem()
	require.NoError(t, err)
	return newTestStateOn(t, db, cfg)
}

func newTestStateOn(t *testing.T, db store.DB, cfg Config) *State {
	s, err := New(db, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
		db.Close()
	})
	return s
}

var testScript = []byte{0x76, 0xa9, 0x14, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x88, 0xac}

// coinbase returns a coinbase tx unique to tag.
func coinbase(tag uint32) *chainstate.Tx {
	sig := make([]byte, 4)
	binary.LittleEndian.PutUint32(sig, tag)
	return &chainstate.Tx{
		Version: 1,
		TxIns: chainstate.TxInList{
			{
				PrevOut:   chainstate.OutPoint{N: 0xffffffff},
				ScriptSig: sig,
				Sequence:  0xffffffff,
			},
		},
		TxOuts: chainstate.TxOutList{
			{Value: 50 * 100000000, ScriptPubKey: testScript},
		},
	}
}

// spend returns a tx spending outpoints into a single output.
func spend(value int64, outpoints ...chainstate.OutPoint) *chainstate.Tx {
	tx := &chainstate.Tx{
		Version: 1,
		TxOuts: chainstate.TxOutList{
			{Value: value, ScriptPubKey: testScript},
		},
	}
	for _, op := range outpoints {
		tx.TxIns = append(tx.TxIns, &chainstate.TxIn{
			PrevOut:   op,
			ScriptSig: []byte{0x51},
			Sequence:  0xffffffff,
		})
	}
	return tx
}

// shielded returns a tx revealing sapling nullifiers.
func shielded(tag byte, nullifiers ...chainstate.Nullifier) *chainstate.Tx {
	return &chainstate.Tx{
		Version: chainstate.TxVersionShielded | 4,
		TxOuts: chainstate.TxOutList{
			{Value: int64(tag), ScriptPubKey: testScript},
		},
		SaplingNullifiers: nullifiers,
	}
}

// makeBlock builds a block on prev. nonce makes both the header and the
// coinbase unique.
func makeBlock(prev chainstate.Uint256, nonce uint32, txs ...*chainstate.Tx) *chainstate.Block {
	return &chainstate.Block{
		BlockHeader: &chainstate.BlockHeader{
			Version:  4,
			PrevHash: prev,
			Time:     1600000000 + nonce,
			Bits:     0x207fffff,
			Nonce:    nonce,
		},
		Txs: append(chainstate.TxList{coinbase(nonce)}, txs...),
	}
}

// makeChain builds n blocks starting at genesis.
func makeChain(n int) []*chainstate.Block {
	blocks := make([]*chainstate.Block, 0, n)
	prev := chainstate.GenesisPreviousBlockHash
	for i := 0; i < n; i++ {
		b := makeBlock(prev, uint32(i+1))
		blocks = append(blocks, b)
		prev = b.Hash()
	}
	return blocks
}

func coinbaseOutPoint(b *chainstate.Block) chainstate.OutPoint {
	return chainstate.OutPoint{Hash: b.Txs[0].Hash(), N: 0}
}

var errDiskFull = errors.New("disk full")

// failingDB fails inserts while fail is set: into every tree, or only
// into the tree named only.
type failingDB struct {
	store.DB
	fail atomic.Bool
	only string
}

func (d *failingDB) Tree(name string) (store.Tree, error) {
	t, err := d.DB.Tree(name)
	if err != nil {
		return nil, err
	}
	return &failingTree{Tree: t, db: d, name: name}, nil
}

type failingTree struct {
	store.Tree
	db   *failingDB
	name string
}

func (t *failingTree) Insert(key, value []byte) ([]byte, error) {
	if t.db.fail.Load() && (t.db.only == "" || t.db.only == t.name) {
		return nil, errDiskFull
	}
	return t.Tree.Insert(key, value)
}
