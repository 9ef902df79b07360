package chainstate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTx() *Tx {
	return &Tx{
		Version: 1,
		TxIns: TxInList{
			{
				PrevOut:   OutPoint{Hash: Uint256{1, 2, 3}, N: 7},
				ScriptSig: []byte{0x51, 0x52},
				Sequence:  0xffffffff,
			},
		},
		TxOuts: TxOutList{
			{Value: 5000000000, ScriptPubKey: []byte{0x76, 0xa9, 0x14}},
			{Value: 1, ScriptPubKey: []byte{0x6a}},
		},
		LockTime: 500,
	}
}

func TestTxRoundTrip(t *testing.T) {
	tx := testTx()

	b, err := Encode(tx)
	require.NoError(t, err)
	assert.Len(t, b, tx.Size())

	var got Tx
	require.NoError(t, Decode(&got, b))
	assert.Equal(t, tx, &got)
	assert.Equal(t, tx.Hash(), got.Hash())
}

func TestTxSegWit(t *testing.T) {
	legacy := testTx()

	tx := testTx()
	tx.SegWit = true
	tx.TxIns[0].Witness = Witness{{0x30, 0x44}, {0x02, 0x21}}

	b, err := Encode(tx)
	require.NoError(t, err)
	assert.Len(t, b, tx.Size())
	assert.Equal(t, []byte{0x00, 0x01}, b[4:6])

	var got Tx
	require.NoError(t, Decode(&got, b))
	assert.True(t, got.SegWit)
	assert.Equal(t, tx, &got)

	// The txid does not cover the witness.
	assert.Equal(t, legacy.Hash(), tx.Hash())
}

func TestTxSegWitEmptyStack(t *testing.T) {
	tx := testTx()
	tx.SegWit = true
	tx.TxIns[0].Witness = Witness{{0x30, 0x44}}
	tx.TxIns = append(tx.TxIns, &TxIn{
		PrevOut:   OutPoint{Hash: Uint256{4}, N: 0},
		ScriptSig: []byte{0x51},
		Sequence:  0xffffffff,
	})

	b, err := Encode(tx)
	require.NoError(t, err)
	assert.Len(t, b, tx.Size())

	var got Tx
	require.NoError(t, Decode(&got, b))
	assert.Equal(t, tx, &got)
}

func TestTxBadSegWitFlag(t *testing.T) {
	b := []byte{
		0x01, 0x00, 0x00, 0x00, // version
		0x00, // marker
		0x02, // flag
	}
	var tx Tx
	err := Decode(&tx, b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTxShielded(t *testing.T) {
	tx := &Tx{
		Version: TxVersionShielded | 4,
		TxOuts: TxOutList{
			{Value: 100, ScriptPubKey: []byte{0x51}},
		},
		SaplingNullifiers: NullifierList{{0xaa}, {0xbb}},
	}
	require.True(t, tx.IsShielded())

	b, err := Encode(tx)
	require.NoError(t, err)
	assert.Len(t, b, tx.Size())

	// No transparent inputs, which must not be taken for a segwit
	// marker.
	var got Tx
	require.NoError(t, Decode(&got, b))
	assert.False(t, got.SegWit)
	assert.Equal(t, tx, &got)
	assert.Equal(t, []Nullifier{{0xaa}, {0xbb}}, got.Nullifiers(SaplingPool))
	assert.Empty(t, got.Nullifiers(SproutPool))

	// Nullifiers are part of the txid.
	other := *tx
	other.SaplingNullifiers = NullifierList{{0xaa}, {0xcc}}
	assert.NotEqual(t, tx.Hash(), other.Hash())
}

func TestTxIsCoinbase(t *testing.T) {
	tx := testTx()
	assert.False(t, tx.IsCoinbase())

	tx.TxIns[0].PrevOut = OutPoint{N: 0xffffffff}
	assert.True(t, tx.IsCoinbase())
}

func TestReadListTooLarge(t *testing.T) {
	// 0xff prefix with a huge count.
	b := []byte{0xff, 0, 0, 0, 0, 0, 0, 0, 1}
	var outs TxOutList
	err := BinRead(&outs, bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVarInt(t *testing.T) {
	for _, n := range []uint64{0, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000} {
		var buf bytes.Buffer
		require.NoError(t, writeVarInt(n, &buf))
		assert.Equal(t, compactSizeSize(n), buf.Len(), "size of %d", n)

		got, err := readVarInt(&buf)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
