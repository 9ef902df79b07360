package chainstate

// Block files contain stale blocks: a node keeps every block it ever
// received, and that a block lost a race can only be told from the
// blocks that come after it. Blocks are also not stored in chain order,
// a child can come before its parent.
//
// The stream keeps a fixed-size trail of recent blocks, in the order
// they connected to the graph. While a block sits in the trail, the
// graph can still decide it is an orphan. Blocks leave the trail in
// parent-before-child order and orphans are dropped. Blocks whose
// parent has not been seen yet are set aside until it shows up.

// Blocks set aside for longer than this many arrivals are given up on.
const maxSetAsideAge = 10000

type setAside struct {
	br  *blockRec
	seq int
}

// NewBlockStream starts a stream that connects blocks to root, the hash
// of the last block already known at rootHeight (-1 and the genesis
// parent hash for none). Blocks are released once depth more blocks
// have connected after them. Closing in flushes the trail and then
// closes out.
func NewBlockStream(root Uint256, rootHeight int, depth int) (in chan<- *Block, out <-chan *Block) {
	if depth < 1 {
		depth = 1
	}
	inCh := make(chan *Block)
	outCh := make(chan *Block)
	go blockStreamWorker(inCh, outCh, newBlkGraph(root, rootHeight, 2*depth+1), depth)
	return inCh, outCh
}

func blockStreamWorker(in <-chan *Block, out chan<- *Block, graph *blkGraph, depth int) {
	var (
		trail    blockRecQueue
		waiting  = make(map[Uint256][]setAside) // by parent hash
		nWaiting int
		seq      int
		dropped  int
	)

	release := func() {
		for trail.size() > depth {
			if br := trail.pop(); br.orphan {
				dropped++
				log.Infof("Dropping orphan block %v at height %d", br.hash, br.height)
			} else {
				out <- br.block
			}
		}
	}

	for b := range in {
		seq++
		br := &blockRec{block: b, hash: b.Hash()}

		if !graph.has(b.PrevHash) {
			waiting[b.PrevHash] = append(waiting[b.PrevHash], setAside{br, seq})
			nWaiting++
			log.Tracef("Setting aside block %v (%d waiting)", br.hash, nWaiting)
		} else {
			// Connecting a block can connect the ones waiting for it.
			connect := []*blockRec{br}
			for len(connect) > 0 {
				br := connect[0]
				connect = connect[1:]
				if err := graph.add(br); err != nil {
					log.Debugf("Skipping block %v: %v", br.hash, err)
					continue
				}
				trail.push(br)
				release()
				for _, sa := range waiting[br.hash] {
					connect = append(connect, sa.br)
					nWaiting--
				}
				delete(waiting, br.hash)
			}
		}

		if seq%1000 == 0 {
			for prev, list := range waiting {
				if seq-list[0].seq > maxSetAsideAge {
					log.Debugf("Giving up on %d block(s) with parent %v", len(list), prev)
					nWaiting -= len(list)
					dropped += len(list)
					delete(waiting, prev)
				}
			}
		}
	}

	depth = 0
	release()

	if nWaiting > 0 || dropped > 0 {
		log.Infof("Block stream done, %d orphan or unconnected blocks dropped, "+
			"%d never connected", dropped, nWaiting)
	}
	close(out)
}

type blockRecQueue []*blockRec

// fifo push (yes, these must be pointer methods)
func (q *blockRecQueue) push(n *blockRec) {
	*q = append(*q, n)
}

func (q *blockRecQueue) pop() (n *blockRec) {
	if len(*q) == 0 {
		return nil
	}
	n, *q = (*q)[0], (*q)[1:]
	return n
}

func (q *blockRecQueue) size() int {
	return len(*q)
}
