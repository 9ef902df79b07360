package chainstate

import "io"

// TxOut is a transparent output. Shielded outputs are not indexed and
// are not part of the encoding.
type TxOut struct {
	Value        int64 // zatoshi / satoshi
	ScriptPubKey []byte
}

// Size is the value followed by the length-prefixed script.
func (out *TxOut) Size() int {
	return 8 + stringSize(out.ScriptPubKey)
}

func (out *TxOut) BinRead(r io.Reader) error {
	if err := BinRead(&out.Value, r); err != nil {
		return err
	}
	script, err := readString(r)
	if err != nil {
		return err
	}
	out.ScriptPubKey = script
	return nil
}

func (out *TxOut) BinWrite(w io.Writer) error {
	if err := BinWrite(out.Value, w); err != nil {
		return err
	}
	return writeString(out.ScriptPubKey, w)
}

// TxOutList is a CompactSize count followed by the outputs.
type TxOutList []*TxOut

func (l *TxOutList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		out := new(TxOut)
		if err := out.BinRead(r); err != nil {
			return err
		}
		*l = append(*l, out)
		return nil
	})
}

func (l *TxOutList) BinWrite(w io.Writer) error {
	return writeList(w, len(*l), func(w io.Writer, i int) error {
		return (*l)[i].BinWrite(w)
	})
}

func (l *TxOutList) Size() int {
	n := compactSizeSize(uint64(len(*l)))
	for _, out := range *l {
		n += out.Size()
	}
	return n
}
