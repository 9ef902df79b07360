// Package btcnode converts between btcd wire messages and the domain
// types of this module, so blocks received from a Bitcoin peer can be
// queued into the finalized state and stored blocks served back.
// Connecting to peers is left to the caller; cmd/import only uses it to
// report the getblocks locator of the state it built.
package btcnode

import (
	"errors"
	"fmt"
	"time"

	"github.com/blkchain/chainstate"
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ErrShielded is returned when converting a tx with shielded data,
// which the Bitcoin wire format cannot carry.
var ErrShielded = errors.New("shielded transactions have no wire encoding")

func TxFromMsgTx(mtx *wire.MsgTx) *chainstate.Tx {
	tx := &chainstate.Tx{
		Version:  uint32(mtx.Version),
		TxIns:    make(chainstate.TxInList, 0, len(mtx.TxIn)),
		TxOuts:   make(chainstate.TxOutList, 0, len(mtx.TxOut)),
		LockTime: uint32(mtx.LockTime),
		SegWit:   false,
	}
	// TxIns
	for _, in := range mtx.TxIn {
		txin := &chainstate.TxIn{
			PrevOut: chainstate.OutPoint{
				Hash: chainstate.Uint256(in.PreviousOutPoint.Hash),
				N:    in.PreviousOutPoint.Index,
			},
			ScriptSig: in.SignatureScript,
			Sequence:  in.Sequence,
			Witness:   make(chainstate.Witness, 0, len(in.Witness)),
		}
		for _, w := range in.Witness {
			txin.Witness = append(txin.Witness, w)
		}
		if !tx.SegWit && len(txin.Witness) > 0 {
			tx.SegWit = true
		}
		tx.TxIns = append(tx.TxIns, txin)
	}
	// TxOuts
	for _, out := range mtx.TxOut {
		tx.TxOuts = append(tx.TxOuts, &chainstate.TxOut{
			Value:        out.Value,
			ScriptPubKey: out.PkScript,
		})
	}
	return tx
}

func BlockFromMsgBlock(mb *wire.MsgBlock) *chainstate.Block {
	blk := &chainstate.Block{
		BlockHeader: &chainstate.BlockHeader{
			Version:        uint32(mb.Header.Version),
			PrevHash:       chainstate.Uint256(mb.Header.PrevBlock),
			HashMerkleRoot: chainstate.Uint256(mb.Header.MerkleRoot),
			Time:           uint32(mb.Header.Timestamp.Unix()),
			Bits:           mb.Header.Bits,
			Nonce:          mb.Header.Nonce,
		},
		Txs: make(chainstate.TxList, 0, len(mb.Transactions)),
	}
	for _, mtx := range mb.Transactions {
		blk.Txs = append(blk.Txs, TxFromMsgTx(mtx))
	}
	return blk
}

func MsgTxFromTx(tx *chainstate.Tx) (*wire.MsgTx, error) {
	if tx.IsShielded() {
		return nil, ErrShielded
	}
	mtx := wire.NewMsgTx(int32(tx.Version))
	mtx.LockTime = tx.LockTime
	for _, in := range tx.TxIns {
		prev := wire.NewOutPoint((*chainhash.Hash)(&in.PrevOut.Hash), in.PrevOut.N)
		var witness wire.TxWitness
		for _, w := range in.Witness {
			witness = append(witness, w)
		}
		txin := wire.NewTxIn(prev, in.ScriptSig, witness)
		txin.Sequence = in.Sequence
		mtx.AddTxIn(txin)
	}
	for _, out := range tx.TxOuts {
		mtx.AddTxOut(wire.NewTxOut(out.Value, out.ScriptPubKey))
	}
	return mtx, nil
}

// MsgBlockFromBlock builds the wire message for serving a stored block
// to a peer.
func MsgBlockFromBlock(b *chainstate.Block) (*wire.MsgBlock, error) {
	header := wire.NewBlockHeader(
		int32(b.Version),
		(*chainhash.Hash)(&b.PrevHash),
		(*chainhash.Hash)(&b.HashMerkleRoot),
		b.Bits,
		b.Nonce,
	)
	header.Timestamp = time.Unix(int64(b.Time), 0)

	mb := wire.NewMsgBlock(header)
	for i, tx := range b.Txs {
		mtx, err := MsgTxFromTx(tx)
		if err != nil {
			return nil, fmt.Errorf("tx %d of block %v: %w", i, b.Hash(), err)
		}
		if err := mb.AddTransaction(mtx); err != nil {
			return nil, err
		}
	}
	return mb, nil
}

// BlockLocator converts locator hashes, newest first, into the btcd
// type.
func BlockLocator(hashes []chainstate.Uint256) blockchain.BlockLocator {
	bLocator := make(blockchain.BlockLocator, len(hashes))
	for i, hash := range hashes {
		// Copy, so the locator doesn't alias the caller's slice.
		hCopy := chainhash.Hash(hash)
		bLocator[i] = &hCopy
	}
	return bLocator
}

// Locator is implemented by finalized.State.
type Locator interface {
	BlockLocator() ([]chainstate.Uint256, error)
}

// NewGetBlocksMsg asks a peer for the blocks after the common ancestor
// with our chain, up to stop (zero for as many as the peer sends).
func NewGetBlocksMsg(l Locator, stop chainstate.Uint256) (*wire.MsgGetBlocks, error) {
	hashes, err := l.BlockLocator()
	if err != nil {
		return nil, err
	}

	msg := wire.NewMsgGetBlocks((*chainhash.Hash)(&stop))
	for _, hash := range BlockLocator(hashes) {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
