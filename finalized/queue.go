package finalized

import (
	"context"
	"errors"
	"fmt"

	"github.com/blkchain/chainstate"
)

// CommitResult is the outcome of one queued block. Height is only set
// for blocks that reached the commit pipeline.
type CommitResult struct {
	Hash   chainstate.Uint256
	Height uint32
	Err    error
}

type queuedBlock struct {
	block  *chainstate.Block
	hash   chainstate.Uint256
	direct bool
	result chan CommitResult
}

func (q *queuedBlock) respond(r CommitResult) {
	// Buffered with room for exactly one result, and every block is
	// responded to once.
	q.result <- r
}

// QueueBlock hands a validated block to the commit worker. Blocks can
// arrive in any order: a block is held until the block it declares as
// its parent is the finalized tip, then committed, and any held
// descendants are committed right after it.
//
// The returned channel receives exactly one result. Abandoning it does
// not unqueue the block.
//
// Only one block is held per parent hash; a second block with the same
// parent replaces the first, which is resolved with ErrReplaced.
func (s *State) QueueBlock(block *chainstate.Block) <-chan CommitResult {
	return s.send(block, false)
}

// CommitBlock queues block and waits for its result. Giving up on ctx
// leaves the block queued.
func (s *State) CommitBlock(ctx context.Context, block *chainstate.Block) (chainstate.Uint256, error) {
	return wait(ctx, s.QueueBlock(block))
}

// CommitDirect commits block right away if it extends the finalized
// tip and fails with ErrOrdering otherwise. Held descendants of block
// are committed after it.
func (s *State) CommitDirect(ctx context.Context, block *chainstate.Block) (chainstate.Uint256, error) {
	return wait(ctx, s.send(block, true))
}

func wait(ctx context.Context, ch <-chan CommitResult) (chainstate.Uint256, error) {
	select {
	case r := <-ch:
		return r.Hash, r.Err
	case <-ctx.Done():
		return chainstate.Uint256{}, ctx.Err()
	}
}

func (s *State) send(block *chainstate.Block, direct bool) <-chan CommitResult {
	q := &queuedBlock{
		block:  block,
		hash:   block.Hash(),
		direct: direct,
		result: make(chan CommitResult, 1),
	}

	select {
	case s.queueCh <- q:
	case <-s.quit:
		q.respond(CommitResult{Hash: q.hash, Err: ErrClosed})
	}
	return q.result
}

// QueuedLen returns the number of blocks waiting for their parent.
func (s *State) QueuedLen() int {
	return int(s.queueLen.Load())
}

// queueWorker is the only writer. It owns the map of blocks waiting for
// their parent, keyed by the parent hash they declare.
func (s *State) queueWorker() {
	defer s.wg.Done()

	queued := make(map[chainstate.Uint256]*queuedBlock)

	// A store failure leaves the store in an unknown state; every block
	// after it is rejected with the same error.
	var fatal error

	for {
		select {
		case q := <-s.queueCh:
			if fatal != nil {
				q.respond(CommitResult{Hash: q.hash, Err: fatal})
				continue
			}

			fatal = s.handleQueued(queued, q)
			if fatal != nil {
				log.Errorf("Index store failure, no further blocks "+
					"will be committed: %v", fatal)
				for prev, q := range queued {
					q.respond(CommitResult{Hash: q.hash, Err: fatal})
					delete(queued, prev)
				}
			}

			s.queueLen.Store(int64(len(queued)))
			prometheusQueuedBlocks.Set(float64(len(queued)))

			s.pending.Prune()
			prometheusPendingUtxos.Set(float64(s.pending.Len()))

		case <-s.quit:
			for _, q := range queued {
				q.respond(CommitResult{Hash: q.hash, Err: ErrClosed})
			}
			s.queueLen.Store(0)
			prometheusQueuedBlocks.Set(0)
			return
		}
	}
}

// handleQueued adds q to the queue (or commits it, for CommitDirect)
// and drains whatever became committable. The returned error is a store
// failure.
func (s *State) handleQueued(queued map[chainstate.Uint256]*queuedBlock, q *queuedBlock) error {
	prev := q.block.PrevHash

	if q.direct {
		parent, height, err := s.nextPosition()
		if err != nil {
			q.respond(CommitResult{Hash: q.hash, Err: err})
			return err
		}
		if prev != parent {
			q.respond(CommitResult{
				Hash: q.hash,
				Err: fmt.Errorf("%w: block %v has parent %v, tip is %v",
					ErrOrdering, q.hash, prev, parent),
			})
			return nil
		}
		if err := s.commitQueued(q, height); err != nil {
			return err
		}
		return s.drain(queued)
	}

	if old, ok := queued[prev]; ok {
		log.Debugf("Block %v replaces queued block %v (parent %v)",
			q.hash, old.hash, prev)
		old.respond(CommitResult{Hash: old.hash, Err: ErrReplaced})
	} else if s.cfg.MaxQueued > 0 && len(queued) >= s.cfg.MaxQueued {
		log.Debugf("Queue full, dropping block %v", q.hash)
		q.respond(CommitResult{Hash: q.hash, Err: ErrQueueFull})
		return nil
	}

	queued[prev] = q
	log.Tracef("Queued block %v (parent %v), %d queued", q.hash, prev, len(queued))

	return s.drain(queued)
}

// drain commits queued blocks for as long as one of them extends the
// tip, so a single arrival can commit a whole run of held descendants.
func (s *State) drain(queued map[chainstate.Uint256]*queuedBlock) error {
	for {
		parent, height, err := s.nextPosition()
		if err != nil {
			return err
		}

		q, ok := queued[parent]
		if !ok {
			return nil
		}
		delete(queued, parent)

		if err := s.commitQueued(q, height); err != nil {
			return err
		}
	}
}

// commitQueued commits q and resolves it. Only store failures are
// returned, a rejected block just leaves the tip where it was.
func (s *State) commitQueued(q *queuedBlock, height uint32) error {
	hash, err := s.commit(q.block, height)
	q.respond(CommitResult{Hash: hash, Height: height, Err: err})

	if err != nil {
		prometheusRejectedBlocks.Inc()
		log.Warnf("Rejected block %v at height %d: %v", q.hash, height, err)
		if errors.Is(err, ErrStoreIO) {
			return err
		}
		return nil
	}

	prometheusCommittedBlocks.Inc()
	prometheusCommittedHeight.Set(float64(height))
	return nil
}
