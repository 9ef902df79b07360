package chainstate

import "fmt"

// blockRec is a block while it sits in the graph. The root of the graph
// has no block, only the hash and height blocks are built on.
type blockRec struct {
	block  *Block
	hash   Uint256
	height int
	orphan bool
}

type blkNode struct {
	br       *blockRec
	children []*blkNode
}

type blkGraph struct {
	root   *blkNode
	byHash map[Uint256]*blkNode
	sz     int
	splits map[Uint256]bool
}

// The graph computes the height of an incoming block by incrementing
// its parent's, and marks the blocks off the longest chain as orphans.
// It holds at most size blocks; the oldest are dropped from the root.
func newBlkGraph(root Uint256, rootHeight int, size int) *blkGraph {
	g := &blkGraph{
		byHash: make(map[Uint256]*blkNode, size),
		sz:     size,
		splits: make(map[Uint256]bool),
	}
	g.root = &blkNode{br: &blockRec{hash: root, height: rootHeight}}
	g.byHash[root] = g.root
	return g
}

// Add a blockRec to the graph. If the parent is not in the graph, it's
// an error. After adding, splitCheck() re-evaluates the orphan flags,
// which can flip whenever one branch becomes longer. If the graph grew
// past its size, the root is moved up.
func (g *blkGraph) add(br *blockRec) error {
	if _, ok := g.byHash[br.hash]; ok {
		return fmt.Errorf("duplicate block %v", br.hash)
	}
	prev, ok := g.byHash[br.block.PrevHash]
	if !ok {
		return fmt.Errorf("unknown parent %v", br.block.PrevHash)
	}
	node := &blkNode{br: br}
	prev.children = append(prev.children, node)
	br.height = prev.br.height + 1
	br.orphan = prev.br.orphan

	g.byHash[br.hash] = node
	if len(prev.children) > 1 || len(g.splits) > 0 {
		g.splitCheck()
	}
	for len(g.byHash) > g.sz {
		g.deleteTop()
	}
	return nil
}

func (g *blkGraph) has(hash Uint256) bool {
	_, ok := g.byHash[hash]
	return ok
}

// Replace the root by its child. If the root had a split, the orphan
// branches go with it (assumes splitCheck has been called).
func (g *blkGraph) deleteTop() {
	if g.root == nil {
		return
	}
	old := g.root
	delete(g.byHash, old.br.hash)
	delete(g.splits, old.br.hash)
	g.root = nil

	for _, child := range old.children {
		if child.br.orphan {
			g.dft(child, func(n *blkNode) {
				delete(g.byHash, n.br.hash)
				delete(g.splits, n.br.hash)
			})
		} else {
			g.root = child
		}
	}
}

// Figure out the chain length starting at node, following the longest
// branch at every split.
func (g *blkGraph) chainLen(node *blkNode) (result int) {
	if node == nil {
		return 0
	}
	maxChild := 0
	result++
	for _, child := range node.children {
		if l := g.chainLen(child); l > maxChild {
			maxChild = l
		}
	}
	return result + maxChild
}

// Depth-first (pre-order) traversal
func (g *blkGraph) dft(start *blkNode, action func(*blkNode)) {
	if start == nil {
		return
	}
	var stack blkNodeStack
	stack.push(start)
	for len(stack) > 0 {
		n := stack.pop()
		action(n)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack.push(n.children[i])
		}
	}
}

func (g *blkGraph) splitCheck() {
	g.dft(g.root, func(n *blkNode) {
		if len(n.children) < 2 {
			return
		}
		maxChild, winIdx := 0, 0
		for i, child := range n.children {
			// On a tie the first seen wins.
			if c := g.chainLen(child); c > maxChild {
				maxChild = c
				winIdx = i
			}
		}
		if !g.splits[n.br.hash] {
			log.Infof("Chain split at %v (height %d), winning child: %v",
				n.br.hash, n.br.height, n.children[winIdx].br.hash)
			g.splits[n.br.hash] = true // suppress further messages
		}
		for i, child := range n.children {
			orphan := n.br.orphan || i != winIdx
			g.dft(child, func(c *blkNode) { c.br.orphan = orphan })
		}
	})
}

type blkNodeStack []*blkNode

// yes, these must be methods on the pointer

func (s *blkNodeStack) push(n *blkNode) {
	*s = append(*s, n)
}

func (s *blkNodeStack) pop() (n *blkNode) {
	if len(*s) == 0 {
		return nil
	}
	n, *s = (*s)[len(*s)-1], (*s)[:len(*s)-1]
	return n
}
