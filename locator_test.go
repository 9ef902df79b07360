package chainstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockLocatorHeights(t *testing.T) {
	for _, tc := range []struct {
		tip  uint32
		want []uint32
	}{
		{0, []uint32{0}},
		{1, []uint32{1, 0}},
		{2, []uint32{2, 1, 0}},
		{10, []uint32{10, 9, 8, 6, 2, 0}},
		{99, []uint32{99, 98, 97, 95, 91, 83, 67, 35, 0}},
		{100, []uint32{100, 99, 98, 96, 92, 84, 68, 36, 1}},
		{1000, []uint32{1000, 999, 998, 996, 992, 984, 968, 936, 901}},
	} {
		assert.Equal(t, tc.want, BlockLocatorHeights(tc.tip), "tip %d", tc.tip)
	}
}

func TestBlockLocatorHeightsBounds(t *testing.T) {
	for _, tip := range []uint32{5, 123, 4096, 1<<32 - 1} {
		heights := BlockLocatorHeights(tip)
		assert.Equal(t, tip, heights[0])
		for i := 1; i < len(heights); i++ {
			assert.Less(t, heights[i], heights[i-1])
			assert.LessOrEqual(t, tip-heights[i], uint32(MaxReorgHeight))
		}
	}
}
