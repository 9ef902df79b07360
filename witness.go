package chainstate

import "io"

// Witness is the segwit stack of one input. Segwit transactions carry
// one stack per input after the outputs; an input without witness data
// still takes a zero count.
type Witness [][]byte

func (wit *Witness) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		item, err := readString(r)
		if err == nil {
			*wit = append(*wit, item)
		}
		return err
	})
}

func (wit *Witness) BinWrite(w io.Writer) error {
	return writeList(w, len(*wit), func(w io.Writer, i int) error {
		return writeString((*wit)[i], w)
	})
}

func (wit *Witness) Size() int {
	n := compactSizeSize(uint64(len(*wit)))
	for _, item := range *wit {
		n += stringSize(item)
	}
	return n
}
