package finalized

import (
	"errors"
	"fmt"

	"github.com/blkchain/chainstate"
)

var (
	// ErrStoreIO is matched by every failure of the underlying index
	// store. These are not retried: after a failed write the state of
	// the store is unknown.
	ErrStoreIO = errors.New("index store failure")

	// ErrDoubleSpend is matched by *DoubleSpendError.
	ErrDoubleSpend = errors.New("double spend")

	// ErrOrdering is returned by CommitDirect for a block that does not
	// extend the finalized tip.
	ErrOrdering = errors.New("block does not extend the finalized tip")

	// ErrReplaced is delivered to a queued block when another block
	// declaring the same parent is queued before the parent commits.
	ErrReplaced = errors.New("replaced by a block with the same parent")

	// ErrQueueFull rejects a block when Config.MaxQueued blocks are
	// already waiting for their parents.
	ErrQueueFull = errors.New("block queue is full")

	// ErrClosed is delivered to blocks queued on, or still waiting in, a
	// closed state.
	ErrClosed = errors.New("finalized state is closed")
)

// StoreError records which tree and operation failed.
type StoreError struct {
	Tree string
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Tree, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreIO, e.Err}
}

// DoubleSpendError is a nullifier that was already revealed, either by
// a committed block or earlier in the same block.
type DoubleSpendError struct {
	Pool      chainstate.ShieldedPool
	Nullifier chainstate.Nullifier

	// Height at which the nullifier was first revealed.
	Height uint32
}

func (e *DoubleSpendError) Error() string {
	return fmt.Sprintf("%s nullifier %v already revealed at height %d",
		e.Pool, e.Nullifier, e.Height)
}

func (e *DoubleSpendError) Is(target error) bool {
	return target == ErrDoubleSpend
}
