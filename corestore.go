package chainstate

import (
	"bufio"
	"io"
)

// CoreStore reads magic-prefixed blocks from a directory of Core
// blk*.dat files. Blocks come out in file order, which is not
// necessarily parent-before-child.
type CoreStore struct {
	fb    *fileBundle
	r     *bufio.Reader
	magic uint32
}

func NewCoreStore(dir string, magic uint32) (*CoreStore, error) {
	fb, err := newFileBundle(dir, 0)
	if err != nil {
		return nil, err
	}

	return &CoreStore{
		fb:    fb,
		r:     bufio.NewReaderSize(fb, 64*1024),
		magic: magic,
	}, nil
}

// Next returns the next block, or io.EOF after the last file.
func (cs *CoreStore) Next() (*Block, error) {
	b, err := ReadBlock(cs.r, cs.magic)
	if err == io.ErrUnexpectedEOF {
		// Core preallocates files, a trailing partial record is the
		// end of the data.
		return nil, io.EOF
	}
	return b, err
}

func (cs *CoreStore) Close() error {
	return cs.fb.Close()
}
