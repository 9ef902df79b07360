package chainstate

import (
	"fmt"
	"io"
)

type Block struct {
	*BlockHeader
	Txs TxList
}

func (b *Block) Size() int {
	return b.BlockHeader.Size() + b.Txs.Size()
}

// Coinbase returns the first transaction of the block if it is a
// coinbase, nil otherwise.
func (b *Block) Coinbase() *Tx {
	if len(b.Txs) == 0 || !b.Txs[0].IsCoinbase() {
		return nil
	}
	return b.Txs[0]
}

// BinRead reads a header followed by the transaction list. This is the
// layout of block_by_height values and of the payload of a raw block
// record (see ReadBlock).
func (b *Block) BinRead(r io.Reader) error {
	var bh BlockHeader
	if err := BinRead(&bh, r); err != nil {
		return err
	}
	b.BlockHeader = &bh

	b.Txs = nil
	if err := BinRead(&b.Txs, r); err != nil {
		return err
	}
	return nil
}

func (b *Block) BinWrite(w io.Writer) error {
	if b.BlockHeader == nil {
		return fmt.Errorf("%w: block without header", ErrMalformed)
	}
	if err := BinWrite(b.BlockHeader, w); err != nil {
		return err
	}
	return BinWrite(&b.Txs, w)
}

// ReadBlock reads one magic-prefixed block record as found in Core's
// blk*.dat files. A non-zero magic is verified.
func ReadBlock(r io.Reader, magic uint32) (*Block, error) {
	m, err := readMagic(r)
	if err != nil {
		return nil, err
	}

	if magic > 0 && magic != m {
		return nil, fmt.Errorf("Bad magic: %d", m)
	}

	var size uint32
	if err = BinRead(&size, r); err != nil {
		return nil, err
	}

	var b Block
	if err = BinRead(&b, io.LimitReader(r, int64(size))); err != nil {
		return nil, err
	}
	return &b, nil
}
