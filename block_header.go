package chainstate

import (
	"bytes"
)

// BlockHeader is fixed size (80 bytes) and is read and written with
// the default little-endian binary layout.
type BlockHeader struct {
	Version        uint32
	PrevHash       Uint256
	HashMerkleRoot Uint256
	Time           uint32
	Bits           uint32
	Nonce          uint32
}

const BlockHeaderSize = 80

// Hash identifies the block. The header commits to the transactions
// through the merkle root, so hashing the header alone is enough.
func (bh *BlockHeader) Hash() Uint256 {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderSize))
	BinWrite(bh, buf)
	return ShaSha256(buf.Bytes())
}

func (bh *BlockHeader) Size() int {
	return BlockHeaderSize
}
