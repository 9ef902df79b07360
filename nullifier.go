package chainstate

import (
	"encoding/hex"
	"io"
)

// ShieldedPool names a shielded value pool. Nullifiers from different
// pools are never compared with each other.
type ShieldedPool uint8

const (
	SproutPool ShieldedPool = iota
	SaplingPool
)

func (p ShieldedPool) String() string {
	switch p {
	case SproutPool:
		return "sprout"
	case SaplingPool:
		return "sapling"
	}
	return "unknown"
}

// Nullifier marks a shielded note as spent.
type Nullifier [32]byte

func (n Nullifier) String() string {
	return hex.EncodeToString(n[:])
}

type NullifierList []Nullifier

func (nl *NullifierList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var n Nullifier
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return err
		}
		*nl = append(*nl, n)
		return nil
	})
}

func (nl *NullifierList) BinWrite(w io.Writer) error {
	return writeList(w, len(*nl), func(w io.Writer, i int) error {
		_, err := w.Write((*nl)[i][:])
		return err
	})
}

func (nl *NullifierList) Size() int {
	return compactSizeSize(uint64(len(*nl))) + 32*len(*nl)
}
