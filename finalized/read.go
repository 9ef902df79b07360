package finalized

import (
	"context"

	"github.com/blkchain/chainstate"
)

// Tip is the most recently committed block.
type Tip struct {
	Height uint32
	Hash   chainstate.Uint256
}

// Tip returns the finalized tip, or nil if nothing is committed yet.
// It is the highest entry of hash_by_height.
func (s *State) Tip() (*Tip, error) {
	k, v, err := s.hashByHeight.last()
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, nil
	}

	height, err := decodeHeight(k)
	if err != nil {
		return nil, &StoreError{Tree: s.hashByHeight.name, Op: "decode", Err: err}
	}
	hash, err := decodeHash(v)
	if err != nil {
		return nil, &StoreError{Tree: s.hashByHeight.name, Op: "decode", Err: err}
	}
	return &Tip{Height: height, Hash: hash}, nil
}

// TipHash returns the hash of the finalized tip, or the genesis parent
// hash if nothing is committed yet.
func (s *State) TipHash() (chainstate.Uint256, error) {
	hash, _, err := s.nextPosition()
	return hash, err
}

// HashOrHeight identifies a block either way.
type HashOrHeight struct {
	hash   chainstate.Uint256
	height uint32
	byHash bool
}

func ByHash(hash chainstate.Uint256) HashOrHeight {
	return HashOrHeight{hash: hash, byHash: true}
}

func ByHeight(height uint32) HashOrHeight {
	return HashOrHeight{height: height}
}

// onChain reports whether p names a block at or below the tip. Values
// written by a commit that was cut short name a block that never made
// it into hash_by_height, or was replaced there by a sibling.
func (s *State) onChain(p position, tip *Tip) (bool, error) {
	if tip == nil || p.height > tip.Height {
		return false, nil
	}
	v, err := s.hashByHeight.get(heightKey(p.height))
	if err != nil || v == nil {
		return false, err
	}
	hash, err := decodeHash(v)
	if err != nil {
		return false, &StoreError{Tree: s.hashByHeight.name, Op: "decode", Err: err}
	}
	return hash == p.block, nil
}

// committedHeight returns the height of a block hash, if that block is
// on the chain.
func (s *State) committedHeight(hash chainstate.Uint256, tip *Tip) (uint32, bool, error) {
	if tip == nil {
		return 0, false, nil
	}
	v, err := s.heightByHash.get(hash[:])
	if err != nil || v == nil {
		return 0, false, err
	}
	height, err := decodeHeight(v)
	if err != nil {
		return 0, false, &StoreError{Tree: s.heightByHash.name, Op: "decode", Err: err}
	}
	ok, err := s.onChain(position{height: height, block: hash}, tip)
	if err != nil || !ok {
		return 0, false, err
	}
	return height, true, nil
}

// Block returns a committed block, or nil.
func (s *State) Block(id HashOrHeight) (*chainstate.Block, error) {
	tip, err := s.Tip()
	if err != nil || tip == nil {
		return nil, err
	}

	height := id.height
	if id.byHash {
		h, ok, err := s.committedHeight(id.hash, tip)
		if err != nil || !ok {
			return nil, err
		}
		height = h
	}
	if height > tip.Height {
		return nil, nil
	}

	v, err := s.blockByHeight.get(heightKey(height))
	if err != nil || v == nil {
		return nil, err
	}
	var b chainstate.Block
	if err := chainstate.Decode(&b, v); err != nil {
		return nil, &StoreError{Tree: s.blockByHeight.name, Op: "decode", Err: err}
	}
	return &b, nil
}

// Depth returns how far below the tip the block with hash is; the tip
// itself has depth 0. ok is false for unknown blocks.
func (s *State) Depth(hash chainstate.Uint256) (depth uint32, ok bool, err error) {
	tip, err := s.Tip()
	if err != nil {
		return 0, false, err
	}
	height, ok, err := s.committedHeight(hash, tip)
	if err != nil || !ok {
		return 0, false, err
	}
	return tip.Height - height, true, nil
}

// Tx returns a committed transaction and the height of its block, or
// nil.
func (s *State) Tx(hash chainstate.Uint256) (*chainstate.Tx, uint32, error) {
	tip, err := s.Tip()
	if err != nil || tip == nil {
		return nil, 0, err
	}
	v, err := s.txByHash.get(hash[:])
	if err != nil || v == nil {
		return nil, 0, err
	}
	var tx chainstate.Tx
	pos, err := decodeRecord(v, &tx)
	if err != nil {
		return nil, 0, &StoreError{Tree: s.txByHash.name, Op: "decode", Err: err}
	}
	ok, err := s.onChain(pos, tip)
	if err != nil || !ok {
		return nil, 0, err
	}
	return &tx, pos.height, nil
}

// UTXO returns the output at outpoint if it was created by a committed
// block and no committed block has spent it, nil otherwise.
func (s *State) UTXO(outpoint chainstate.OutPoint) (*chainstate.UTXO, error) {
	tip, err := s.Tip()
	if err != nil || tip == nil {
		return nil, err
	}

	key := outpointKey(outpoint)
	v, err := s.utxoByOutpoint.get(key)
	if err != nil || v == nil {
		return nil, err
	}
	var utxo chainstate.UTXO
	created, err := decodeRecord(v, &utxo)
	if err != nil {
		return nil, &StoreError{Tree: s.utxoByOutpoint.name, Op: "decode", Err: err}
	}
	ok, err := s.onChain(created, tip)
	if err != nil || !ok {
		return nil, err
	}

	spend, err := s.spentByOutpoint.get(key)
	if err != nil {
		return nil, err
	}
	if spend != nil {
		spentAt, err := decodePosition(spend)
		if err != nil {
			return nil, &StoreError{Tree: s.spentByOutpoint.name, Op: "decode", Err: err}
		}
		ok, err := s.onChain(spentAt, tip)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
	}
	return &utxo, nil
}

// AwaitUTXO returns the output at outpoint, waiting for a commit to
// create it if necessary. The wait is registered before the store is
// checked, so an output committed in between is not missed.
func (s *State) AwaitUTXO(ctx context.Context, outpoint chainstate.OutPoint) (*chainstate.UTXO, error) {
	sub := s.pending.Subscribe(outpoint)

	utxo, err := s.UTXO(outpoint)
	if err != nil || utxo != nil {
		sub.Cancel()
		return utxo, err
	}
	return sub.Wait(ctx)
}

// PendingUTXOs returns the number of outpoints being waited on.
func (s *State) PendingUTXOs() int {
	return s.pending.Len()
}

// BlockLocator returns the hashes at BlockLocatorHeights of the tip,
// newest first. It is empty for an empty state.
func (s *State) BlockLocator() ([]chainstate.Uint256, error) {
	tip, err := s.Tip()
	if err != nil || tip == nil {
		return nil, err
	}

	heights := chainstate.BlockLocatorHeights(tip.Height)
	hashes := make([]chainstate.Uint256, 0, len(heights))
	for _, h := range heights {
		v, err := s.hashByHeight.get(heightKey(h))
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		hash, err := decodeHash(v)
		if err != nil {
			return nil, &StoreError{Tree: s.hashByHeight.name, Op: "decode", Err: err}
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}
