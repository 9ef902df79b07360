package chainstate

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressAmount(t *testing.T) {
	const coin = 100000000
	for _, tc := range []struct {
		amount, compressed uint64
	}{
		{0, 0x0},
		{1, 0x1},
		{coin / 100, 0x7},
		{coin, 0x9},
		{50 * coin, 0x32},
		{21000000 * coin, 0x1406f40},
	} {
		assert.Equal(t, tc.compressed, compressAmount(tc.amount), "amount %d", tc.amount)
		assert.Equal(t, tc.amount, decompressAmount(tc.compressed), "compressed %#x", tc.compressed)
	}

	for i := uint64(0); i < 100000; i++ {
		require.Equal(t, i, decompressAmount(compressAmount(i)))
	}
}

func p2pk(key []byte) []byte {
	script := append([]byte{byte(len(key))}, key...)
	return append(script, 0xac)
}

func TestUTXOScripts(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey()

	hash20 := bytes.Repeat([]byte{0x11}, 20)
	p2pkh := append(append([]byte{0x76, 0xa9, 20}, hash20...), 0x88, 0xac)
	p2sh := append(append([]byte{0xa9, 20}, hash20...), 0x87)

	// 0x04 prefix, but not a point on the curve.
	offCurve := p2pk(append([]byte{0x04}, bytes.Repeat([]byte{0xff}, 64)...))

	for _, tc := range []struct {
		name   string
		script []byte
		size   int
	}{
		{"p2pkh", p2pkh, 20},
		{"p2sh", p2sh, 20},
		{"p2pk compressed", p2pk(pub.SerializeCompressed()), 32},
		{"p2pk uncompressed", p2pk(pub.SerializeUncompressed()), 32},
		{"p2pk off curve", offCurve, len(offCurve)},
		{"other", []byte{0x6a, 0x04, 0xde, 0xad, 0xbe, 0xef}, 6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			u := &UTXO{
				TxOut:    TxOut{Value: 50 * 100000000, ScriptPubKey: tc.script},
				Height:   100,
				Coinbase: true,
			}
			b, err := Encode(u)
			require.NoError(t, err)

			// code, amount and script kind fit a byte each here.
			assert.Len(t, b, 3+tc.size)

			var got UTXO
			require.NoError(t, Decode(&got, b))
			assert.Equal(t, u, &got)
		})
	}
}

func TestUTXOHeightAndCoinbase(t *testing.T) {
	u := &UTXO{
		TxOut:  TxOut{Value: 12345, ScriptPubKey: []byte{0x51}},
		Height: 700000,
	}
	b, err := Encode(u)
	require.NoError(t, err)

	var got UTXO
	require.NoError(t, Decode(&got, b))
	assert.Equal(t, uint32(700000), got.Height)
	assert.False(t, got.Coinbase)
	assert.Equal(t, int64(12345), got.Value)
}

func TestUTXOBadScriptKind(t *testing.T) {
	// Height/coinbase, amount, then a compressed uncompressed-key kind
	// whose x coordinate is not on the curve.
	b := append([]byte{0x02, 0x01, 0x04}, bytes.Repeat([]byte{0xff}, 32)...)

	var u UTXO
	err := Decode(&u, b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestUTXOLongScript(t *testing.T) {
	script := bytes.Repeat([]byte{0x51}, 10001)
	u := &UTXO{
		TxOut:  TxOut{Value: 1, ScriptPubKey: script},
		Height: 1,
	}
	b, err := Encode(u)
	require.NoError(t, err)

	var got UTXO
	require.NoError(t, Decode(&got, b))
	assert.Equal(t, u, &got)
}
