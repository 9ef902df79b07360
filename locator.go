package chainstate

// MaxReorgHeight is how far back the locator reaches: the finalized
// state never looks deeper than this for a common ancestor.
const MaxReorgHeight = 99

// BlockLocatorHeights returns the heights of the hashes in a block
// locator for a chain whose tip is at tipHeight: the tip, then
// exponentially spaced ancestors (tip-1, tip-2, tip-4, ...), ending with
// the oldest height within MaxReorgHeight of the tip.
func BlockLocatorHeights(tipHeight uint32) []uint32 {
	var minHeight uint32
	if tipHeight > MaxReorgHeight {
		minHeight = tipHeight - MaxReorgHeight
	}

	heights := []uint32{tipHeight}
	for step := uint64(1); step <= uint64(tipHeight); step *= 2 {
		h := tipHeight - uint32(step)
		if h <= minHeight {
			break
		}
		heights = append(heights, h)
	}
	if heights[len(heights)-1] != minHeight {
		heights = append(heights, minHeight)
	}
	return heights
}
