package finalized

import (
	"encoding/binary"
	"fmt"

	"github.com/blkchain/chainstate"
)

// Tree names. Heights are keyed big-endian so that ascending key order
// is ascending height order.
const (
	hashByHeightTree      = "hash_by_height"
	heightByHashTree      = "height_by_hash"
	blockByHeightTree     = "block_by_height"
	txByHashTree          = "tx_by_hash"
	utxoByOutpointTree    = "utxo_by_outpoint"
	spentByOutpointTree   = "spent_by_outpoint"
	sproutNullifiersTree  = "sprout_nullifiers"
	saplingNullifiersTree = "sapling_nullifiers"
)

var shieldedPools = []chainstate.ShieldedPool{
	chainstate.SproutPool,
	chainstate.SaplingPool,
}

func heightKey(height uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], height)
	return b[:]
}

func decodeHeight(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: height of %d bytes", chainstate.ErrMalformed, len(b))
	}
	return binary.BigEndian.Uint32(b[:4]), nil
}

func decodeHash(b []byte) (chainstate.Uint256, error) {
	if len(b) != 32 {
		return chainstate.Uint256{}, fmt.Errorf("%w: hash of %d bytes", chainstate.ErrMalformed, len(b))
	}
	return chainstate.Uint256FromBytes(b), nil
}

// outpointKey is the tx hash followed by the big-endian output index.
func outpointKey(op chainstate.OutPoint) []byte {
	b := make([]byte, 36)
	copy(b, op.Hash[:])
	binary.BigEndian.PutUint32(b[32:], op.N)
	return b
}

// position is where an index entry was written from: the height and
// hash of the block being committed. An entry only counts if that block
// is still the one at that height in hash_by_height, entries left by a
// commit that never reached the tip are ignored even if a sibling was
// committed at the same height afterwards.
type position struct {
	height uint32
	block  chainstate.Uint256
}

const positionSize = 4 + 32

func (p position) bytes() []byte {
	b := make([]byte, positionSize)
	binary.BigEndian.PutUint32(b, p.height)
	copy(b[4:], p.block[:])
	return b
}

func decodePosition(b []byte) (position, error) {
	if len(b) < positionSize {
		return position{}, fmt.Errorf("%w: position of %d bytes", chainstate.ErrMalformed, len(b))
	}
	return position{
		height: binary.BigEndian.Uint32(b),
		block:  chainstate.Uint256FromBytes(b[4:positionSize]),
	}, nil
}

// Values of tx_by_hash and utxo_by_outpoint: position, then the
// encoded tx or UTXO.
func encodeRecord(p position, v interface{}) ([]byte, error) {
	body, err := chainstate.Encode(v)
	if err != nil {
		return nil, err
	}
	return append(p.bytes(), body...), nil
}

func decodeRecord(b []byte, v interface{}) (position, error) {
	p, err := decodePosition(b)
	if err != nil {
		return position{}, err
	}
	return p, chainstate.Decode(v, b[positionSize:])
}

// Values of spent_by_outpoint: position of the spending block, then the
// spending tx hash. Values of the nullifier trees are the position
// alone.
func encodeSpend(p position, spender chainstate.Uint256) []byte {
	return append(p.bytes(), spender[:]...)
}
