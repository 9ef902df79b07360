package finalized

import (
	"fmt"
	"time"

	"github.com/blkchain/chainstate"
)

// nextPosition returns the hash a committable block must declare as its
// parent and the height it will get.
func (s *State) nextPosition() (chainstate.Uint256, uint32, error) {
	tip, err := s.Tip()
	if err != nil {
		return chainstate.Uint256{}, 0, err
	}
	if tip == nil {
		return chainstate.GenesisPreviousBlockHash, 0, nil
	}
	return tip.Hash, tip.Height + 1, nil
}

// commit writes block at height to every index and advances the tip.
//
// The store has no multi-key transactions, so the write order matters:
// everything is checked before the first write, and hash_by_height,
// which the tip is read from, is written last. A commit that is cut
// short leaves entries naming a block that is not in hash_by_height;
// readers check every position against it and ignore those. The next
// block committed at that height, the same one or a sibling, overwrites
// what it shares with them. Within one run a store failure stops the
// worker for good (see queueWorker).
//
// The caller must have checked that block extends the tip; a block that
// doesn't is a bug in the queue and panics.
func (s *State) commit(block *chainstate.Block, height uint32) (chainstate.Uint256, error) {
	start := time.Now()

	parent, next, err := s.nextPosition()
	if err != nil {
		return chainstate.Uint256{}, err
	}
	hash := block.Hash()
	if block.PrevHash != parent || height != next {
		panic(fmt.Sprintf("%v: block %v with parent %v at height %d, "+
			"expected parent %v at height %d", ErrOrdering, hash,
			block.PrevHash, height, parent, next))
	}

	log.Tracef("Committing block %v at height %d: %v", hash, height,
		spewClosure(block))

	if err := s.checkNullifiers(block, height); err != nil {
		return hash, err
	}

	blockBytes, err := chainstate.Encode(block)
	if err != nil {
		return hash, err
	}

	pos := position{height: height, block: hash}
	created := make(map[chainstate.OutPoint]*chainstate.UTXO)
	for i, tx := range block.Txs {
		if err := s.commitTx(tx, i == 0 && tx.IsCoinbase(), pos, created); err != nil {
			return hash, err
		}
	}

	if err := s.blockByHeight.insert(heightKey(height), blockBytes); err != nil {
		return hash, err
	}
	if err := s.heightByHash.insert(hash[:], heightKey(height)); err != nil {
		return hash, err
	}

	// This advances the tip.
	if err := s.hashByHeight.insert(heightKey(height), hash[:]); err != nil {
		return hash, err
	}

	prometheusCommitDuration.Observe(time.Since(start).Seconds())
	log.Debugf("Committed block %v at height %d (%d txs, %d bytes)",
		hash, height, len(block.Txs), len(blockBytes))

	s.pending.CheckAgainst(created)

	return hash, nil
}

// commitTx indexes tx, its outputs, the outputs it spends and its
// nullifiers, all at pos. New outputs are added to created.
func (s *State) commitTx(tx *chainstate.Tx, coinbase bool, pos position,
	created map[chainstate.OutPoint]*chainstate.UTXO) error {

	txHash := tx.Hash()

	record, err := encodeRecord(pos, tx)
	if err != nil {
		return err
	}
	if err := s.txByHash.insert(txHash[:], record); err != nil {
		return err
	}

	for n, out := range tx.TxOuts {
		outpoint := chainstate.OutPoint{Hash: txHash, N: uint32(n)}
		utxo := &chainstate.UTXO{
			TxOut:    *out,
			Height:   pos.height,
			Coinbase: coinbase,
		}
		b, err := encodeRecord(pos, utxo)
		if err != nil {
			return err
		}
		if err := s.utxoByOutpoint.insert(outpointKey(outpoint), b); err != nil {
			return err
		}
		created[outpoint] = utxo
	}

	if !coinbase {
		for _, in := range tx.TxIns {
			err := s.spentByOutpoint.insert(outpointKey(in.PrevOut),
				encodeSpend(pos, txHash))
			if err != nil {
				return err
			}
		}
	}

	for _, pool := range shieldedPools {
		ix := s.nullifiers[pool]
		for _, n := range tx.Nullifiers(pool) {
			if err := ix.insert(n[:], pos.bytes()); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkNullifiers rejects a block revealing a nullifier twice, or one
// already revealed by a committed block. A stored nullifier whose block
// is not on the chain was left by an interrupted commit and is not a
// conflict.
func (s *State) checkNullifiers(block *chainstate.Block, height uint32) error {
	tip, err := s.Tip()
	if err != nil {
		return err
	}

	for _, pool := range shieldedPools {
		ix := s.nullifiers[pool]
		seen := make(map[chainstate.Nullifier]struct{})

		for _, tx := range block.Txs {
			for _, n := range tx.Nullifiers(pool) {
				if _, ok := seen[n]; ok {
					return &DoubleSpendError{Pool: pool, Nullifier: n, Height: height}
				}
				seen[n] = struct{}{}

				v, err := ix.get(n[:])
				if err != nil {
					return err
				}
				if v == nil {
					continue
				}
				revealed, err := decodePosition(v)
				if err != nil {
					return &StoreError{Tree: ix.name, Op: "decode", Err: err}
				}
				ok, err := s.onChain(revealed, tip)
				if err != nil {
					return err
				}
				if ok {
					return &DoubleSpendError{Pool: pool, Nullifier: n, Height: revealed.height}
				}
			}
		}
	}
	return nil
}
