package chainstate

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

func readMagic(r io.Reader) (uint32, error) {
	var magic [4]byte

	for magic[0] == 0x00 {
		if n, err := io.ReadFull(r, magic[:1]); n < 1 {
			return 0, err
		}
	}
	if _, err := io.ReadFull(r, magic[1:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(magic[:]), nil
}

type BinReader interface {
	BinRead(io.Reader) error
}
type BinWriter interface {
	BinWrite(io.Writer) error
}

// BinRead will see if BinReader interface is provided, otherwise it
// falls back to LittleEndian binary.Read.
func BinRead(s interface{}, r io.Reader) error {
	if br, ok := s.(BinReader); ok {
		return br.BinRead(r)
	}
	return binary.Read(r, binary.LittleEndian, s)
}

// Similar to BinRead, check for BinWriter, defer to binary.Write.
func BinWrite(s interface{}, w io.Writer) error {
	if bw, ok := s.(BinWriter); ok {
		return bw.BinWrite(w)
	}
	return binary.Write(w, binary.LittleEndian, s)
}

// Encode is BinWrite into a fresh byte slice, which is what the index
// trees store as values.
func Encode(s interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := BinWrite(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode is BinRead from a byte slice. Trailing bytes are not an error.
func Decode(s interface{}, b []byte) error {
	return BinRead(s, bytes.NewReader(b))
}

// readVarInt reads a Bitcoin CompactSize integer.
func readVarInt(r io.Reader) (uint64, error) {
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}

	var (
		n   int
		err error
	)
	switch buf[0] {
	case 0xfd:
		n, err = io.ReadFull(r, buf[:2])
	case 0xfe:
		n, err = io.ReadFull(r, buf[:4])
	case 0xff:
		n, err = io.ReadFull(r, buf[:8])
	default:
		return uint64(buf[0]), nil
	}
	if err != nil {
		return 0, err
	}

	var result uint64
	for i := 0; i < n; i++ {
		result |= uint64(buf[i]) << uint64(i*8)
	}
	return result, nil
}

func writeVarInt(i uint64, w io.Writer) (err error) {
	if i < 0xfd {
		_, err = w.Write([]byte{byte(i)})
		return err
	}
	if i <= math.MaxUint16 {
		if _, err = w.Write([]byte{0xfd}); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint16(i))
	}
	if i <= math.MaxUint32 {
		if _, err = w.Write([]byte{0xfe}); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint32(i))
	}
	if _, err = w.Write([]byte{0xff}); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, i)
}

func compactSizeSize(i uint64) int {
	switch {
	case i < 0xfd:
		return 1
	case i <= math.MaxUint16:
		return 3
	case i <= math.MaxUint32:
		return 5
	}
	return 9
}

// Upper bound on a length prefix, so a corrupt value cannot make us
// allocate gigabytes.
const maxStringSize = 32 * 1024 * 1024

func readString(r io.Reader) ([]byte, error) {
	size, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if size > maxStringSize {
		return nil, errTooLarge(size)
	}

	buf := make([]byte, int(size))
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// stringSize is the encoded size of s with its length prefix.
func stringSize(s []byte) int {
	return compactSizeSize(uint64(len(s))) + len(s)
}

func writeString(s []byte, w io.Writer) (err error) {
	if err = writeVarInt(uint64(len(s)), w); err != nil {
		return err
	}
	_, err = w.Write(s)
	return err
}

func readList(r io.Reader, doRead func(io.Reader) error) error {
	size, err := readVarInt(r)
	if err != nil {
		return err
	}
	if size > maxStringSize {
		return errTooLarge(size)
	}

	for i := uint64(0); i < size; i++ {
		if err = doRead(r); err != nil {
			return err
		}
	}
	return nil
}

func writeList(w io.Writer, size int, doWrite func(io.Writer, int) error) error {
	err := writeVarInt(uint64(size), w)
	if err != nil {
		return err
	}

	for i := 0; i < size; i++ {
		if err = doWrite(w, i); err != nil {
			return err
		}
	}
	return nil
}
