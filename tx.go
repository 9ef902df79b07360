package chainstate

import (
	"bytes"
	"fmt"
	"io"
)

// TxVersionShielded is the overwinter bit of the version field. A
// transaction with it set carries sprout and sapling nullifier lists
// after the lock time.
const TxVersionShielded = 0x80000000

type Tx struct {
	Version  uint32
	TxIns    TxInList
	TxOuts   TxOutList
	LockTime uint32
	SegWit   bool

	SproutNullifiers  NullifierList
	SaplingNullifiers NullifierList
}

func (tx *Tx) Hash() Uint256 {
	buf := new(bytes.Buffer)
	tx.binWriteWithoutWitness(buf)
	return ShaSha256(buf.Bytes())
}

func (tx *Tx) IsShielded() bool {
	return tx.Version&TxVersionShielded != 0
}

// IsCoinbase reports whether the tx has a single input spending the
// null prevout.
func (tx *Tx) IsCoinbase() bool {
	return len(tx.TxIns) == 1 && tx.TxIns[0].PrevOut.IsNull()
}

// Nullifiers returns the nullifiers revealed in the given pool.
func (tx *Tx) Nullifiers(pool ShieldedPool) []Nullifier {
	switch pool {
	case SproutPool:
		return tx.SproutNullifiers
	case SaplingPool:
		return tx.SaplingNullifiers
	}
	return nil
}

func (tx *Tx) Size() int {
	version, locktime, segwit := 4, 4, 0
	if tx.SegWit && !tx.IsShielded() {
		segwit = 2 // marker+flag
		for _, in := range tx.TxIns {
			segwit += in.Witness.Size()
		}
	}
	size := version + segwit + tx.TxIns.Size() + tx.TxOuts.Size() + locktime
	if tx.IsShielded() {
		size += tx.SproutNullifiers.Size() + tx.SaplingNullifiers.Size()
	}
	return size
}

func (tx *Tx) BinRead(r io.Reader) (err error) {
	var wcnt int

	if err = BinRead(&tx.Version, r); err != nil {
		return err
	}

	if err = BinRead(&tx.TxIns, r); err != nil {
		return err
	}

	// Shielded transactions may have no transparent inputs at all and
	// never use the segwit marker.
	if len(tx.TxIns) == 0 && !tx.IsShielded() { // SegWit

		flag, err := readVarInt(r)
		if err != nil {
			return err
		}
		if flag != 1 {
			return fmt.Errorf("%w: invalid SegWit flag: %d", ErrMalformed, flag)
		}

		if err = BinRead(&tx.TxIns, r); err != nil { // Read txins again
			return err
		}
		wcnt = len(tx.TxIns)
	}

	if err = BinRead(&tx.TxOuts, r); err != nil {
		return err
	}

	if wcnt > 0 { // Read witness
		for _, txin := range tx.TxIns {
			var wits Witness
			if err = BinRead(&wits, r); err != nil {
				return err
			}
			txin.Witness = wits
		}
		tx.SegWit = true
	}

	if err = BinRead(&tx.LockTime, r); err != nil {
		return err
	}

	if tx.IsShielded() {
		if err = BinRead(&tx.SproutNullifiers, r); err != nil {
			return err
		}
		if err = BinRead(&tx.SaplingNullifiers, r); err != nil {
			return err
		}
	}

	return nil
}

func (tx *Tx) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(tx.Version, w); err != nil {
		return err
	}
	if tx.SegWit && !tx.IsShielded() {
		if _, err = w.Write([]byte{0x00, 0x01}); err != nil {
			return err
		}
	}
	if err = BinWrite(&tx.TxIns, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxOuts, w); err != nil {
		return err
	}
	if tx.SegWit && !tx.IsShielded() {
		for _, txin := range tx.TxIns {
			if err = BinWrite(&txin.Witness, w); err != nil {
				return err
			}
		}
	}
	if err = BinWrite(tx.LockTime, w); err != nil {
		return err
	}
	return tx.binWriteShielded(w)
}

func (tx *Tx) binWriteWithoutWitness(w io.Writer) (err error) {
	// This is for computing the txid, it is the transaction without
	// the segwit marker and without the witness data.
	if err = BinWrite(tx.Version, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxIns, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxOuts, w); err != nil {
		return err
	}
	if err = BinWrite(tx.LockTime, w); err != nil {
		return err
	}
	return tx.binWriteShielded(w)
}

func (tx *Tx) binWriteShielded(w io.Writer) error {
	if !tx.IsShielded() {
		return nil
	}
	if err := BinWrite(&tx.SproutNullifiers, w); err != nil {
		return err
	}
	return BinWrite(&tx.SaplingNullifiers, w)
}

type TxList []*Tx

func (tl *TxList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var tx Tx
		if err := BinRead(&tx, r); err != nil {
			return err
		}
		*tl = append(*tl, &tx)
		return nil
	})
}

func (tl *TxList) BinWrite(w io.Writer) error {
	return writeList(w, len(*tl), func(w io.Writer, i int) error {
		return BinWrite((*tl)[i], w)
	})
}

func (tl *TxList) Size() int {
	result := compactSizeSize(uint64(len(*tl)))
	for _, t := range *tl {
		result += t.Size()
	}
	return result
}
