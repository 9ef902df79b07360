package chainstate

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decoding error caused by bad input
// (as opposed to a short read).
var ErrMalformed = errors.New("malformed encoding")

func errTooLarge(size uint64) error {
	return fmt.Errorf("%w: length %d exceeds limit", ErrMalformed, size)
}
