package chainstate

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// UTXO is the unspent output record kept in utxo_by_outpoint: the
// output itself plus the height and kind of the tx that created it.
//
// The encoding borrows the amount and script compression of Core's
// chainstate coins, but every integer (the height/coinbase code, the
// amount, the script kind or length) is a CompactSize rather than
// Core's base-128 VarInt, and scripts of any length are kept as they
// are. It is not readable by Core.
type UTXO struct {
	TxOut
	Height   uint32
	Coinbase bool
}

// https://github.com/bitcoin/bitcoin/blob/0.15/src/compressor.h#L71
const specialScripts = 6

func (u *UTXO) BinWrite(w io.Writer) error {
	code := uint64(u.Height) << 1
	if u.Coinbase {
		code |= 1
	}
	if err := writeVarInt(code, w); err != nil {
		return err
	}
	if err := writeVarInt(compressAmount(uint64(u.Value)), w); err != nil {
		return err
	}

	if kind, data, ok := compressScript(u.ScriptPubKey); ok {
		if err := writeVarInt(uint64(kind), w); err != nil {
			return err
		}
		_, err := w.Write(data)
		return err
	}

	if err := writeVarInt(uint64(len(u.ScriptPubKey)+specialScripts), w); err != nil {
		return err
	}
	_, err := w.Write(u.ScriptPubKey)
	return err
}

func (u *UTXO) BinRead(r io.Reader) (err error) {

	// https://github.com/bitcoin/bitcoin/blob/0.15/src/coins.h#L67

	// Height and CoinBase
	code, err := readVarInt(r)
	if err != nil {
		return err
	}
	u.Height = uint32(code >> 1)
	u.Coinbase = (code & 1) != 0

	// Value: a riddle wrapped in an enigma. This a compressed integer
	// stored as a varint, very interesting.
	if vv, err := readVarInt(r); err != nil {
		return err
	} else {
		u.Value = int64(decompressAmount(vv))
	}

	// Size
	vs, err := readVarInt(r)
	if err != nil {
		return err
	}

	if vs < specialScripts {
		buf := make([]byte, getSpecialSize(int(vs)))
		_, err = io.ReadFull(r, buf)
		if err != nil {
			return err
		}
		u.ScriptPubKey = decompressScript(int(vs), buf)
		if u.ScriptPubKey == nil {
			return fmt.Errorf("%w: bad compressed script kind %d", ErrMalformed, vs)
		}
		return nil
	}

	// Same bound as any other length prefix, a script that was written
	// must read back.
	if vs-specialScripts > maxStringSize {
		return errTooLarge(vs - specialScripts)
	}
	buf := make([]byte, vs-specialScripts)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return err
	}
	u.ScriptPubKey = buf
	return nil
}

// https://github.com/bitcoin/bitcoin/blob/0.15/src/compressor.cpp#L141
func compressAmount(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	var e uint64
	for n%10 == 0 && e < 9 {
		n /= 10
		e++
	}
	if e < 9 {
		d := n % 10
		n /= 10
		return 1 + (n*9+d-1)*10 + e
	}
	return 1 + (n-1)*10 + 9
}

// https://github.com/bitcoin/bitcoin/blob/0.15/src/compressor.cpp#L161
func decompressAmount(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := (x % 9) + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for e != 0 {
		n *= 10
		e--
	}
	return n
}

// https://github.com/bitcoin/bitcoin/blob/0.15/src/compressor.cpp#L50
func compressScript(script []byte) (int, []byte, bool) {
	switch {
	case len(script) == 25 && script[0] == 0x76 && script[1] == 0xa9 &&
		script[2] == 20 && script[23] == 0x88 && script[24] == 0xac:
		return 0x00, script[3:23], true

	case len(script) == 23 && script[0] == 0xa9 && script[1] == 20 &&
		script[22] == 0x87:
		return 0x01, script[2:22], true

	case len(script) == 35 && script[0] == 33 && script[34] == 0xac &&
		(script[1] == 0x02 || script[1] == 0x03):
		return int(script[1]), script[2:34], true

	case len(script) == 67 && script[0] == 65 && script[66] == 0xac &&
		script[1] == 0x04:
		// Only keys on the curve survive the round trip.
		key, err := btcec.ParsePubKey(script[1:66])
		if err != nil {
			return 0, nil, false
		}
		compressed := key.SerializeCompressed()
		return int(compressed[0]) + 2, compressed[1:], true
	}
	return 0, nil, false
}

// https://github.com/bitcoin/bitcoin/blob/0.15/src/compressor.cpp#L79
func getSpecialSize(size int) int {
	if size == 0 || size == 1 {
		return 20
	}
	if size == 2 || size == 3 || size == 4 || size == 5 {
		return 32
	}
	return 0
}

// https://github.com/bitcoin/bitcoin/blob/0.15/src/compressor.cpp#L88
func decompressScript(size int, in []byte) []byte {
	switch size {
	case 0x00:
		script := make([]byte, 25)
		script[0] = 0x76 // OP_DUP
		script[1] = 0xa9 // OP_HASH160
		script[2] = 20
		copy(script[3:], in)
		script[23] = 0x88 // OP_EQUALVERIFY
		script[24] = 0xac // OP_CHECKSIG
		return script
	case 0x01:
		script := make([]byte, 23)
		script[0] = 0xa9 // OP_HASH160
		script[1] = 20
		copy(script[2:], in)
		script[22] = 0x87 // OP_EQUAL
		return script
	case 0x02, 0x03:
		script := make([]byte, 35)
		script[0] = 33
		script[1] = byte(size)
		copy(script[2:], in)
		script[34] = 0xac // OP_CHECKSIG
		return script
	case 0x04, 0x05:
		cKey := make([]byte, 33)
		cKey[0] = byte(size) - 2
		copy(cKey[1:], in)
		key, err := btcec.ParsePubKey(cKey)
		if err != nil {
			return nil
		}
		script := make([]byte, 67)
		script[0] = 65
		copy(script[1:], key.SerializeUncompressed())
		script[66] = 0xac // OP_CHECKSIG
		return script
	}
	return nil
}
