package chainstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func runStream(root Uint256, rootHeight, depth int, blocks []*Block) []Uint256 {
	in, out := NewBlockStream(root, rootHeight, depth)
	go func() {
		for _, b := range blocks {
			in <- b
		}
		close(in)
	}()

	var hashes []Uint256
	for b := range out {
		hashes = append(hashes, b.Hash())
	}
	return hashes
}

func TestBlockStream(t *testing.T) {
	g := testBlock(Uint256{}, 1)
	a1 := testBlock(g.Hash(), 2)
	a2 := testBlock(a1.Hash(), 3)
	a3 := testBlock(a2.Hash(), 4)
	a4 := testBlock(a3.Hash(), 5)
	a5 := testBlock(a4.Hash(), 6)
	stale := testBlock(a1.Hash(), 7)

	// The stale block leads for a while, a5 comes before its parent.
	got := runStream(Uint256{}, -1, 2, []*Block{g, a1, stale, a2, a3, a5, a4})

	want := []Uint256{g.Hash(), a1.Hash(), a2.Hash(), a3.Hash(), a4.Hash(), a5.Hash()}
	assert.Equal(t, want, got)
}

func TestBlockStreamFromTip(t *testing.T) {
	g := testBlock(Uint256{}, 1)
	a1 := testBlock(g.Hash(), 2)
	a2 := testBlock(a1.Hash(), 3)

	// g is already known, blocks not connecting to it never come out.
	unrelated := testBlock(Uint256{0xde, 0xad}, 4)
	got := runStream(g.Hash(), 0, 10, []*Block{a2, unrelated, a1, a1})

	assert.Equal(t, []Uint256{a1.Hash(), a2.Hash()}, got)
}
