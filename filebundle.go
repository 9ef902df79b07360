package chainstate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

type fileBundle struct {
	dir    string
	idx    int
	prefix string
	f      *os.File
}

func newFileBundle(dir string, start int) (*fileBundle, error) {
	fb := &fileBundle{
		dir:    dir,
		prefix: "blk",
		idx:    start,
	}
	if err := fb.open(); err != nil {
		return nil, err
	}
	return fb, nil
}

func (f *fileBundle) open() (err error) {
	path := filepath.Join(f.dir, fmt.Sprintf("%s%05d.dat", f.prefix, f.idx))
	log.Debugf("Scanning file: %v", path)
	f.f, err = os.Open(path)
	return err
}

func (f *fileBundle) next() error {
	f.f.Close()
	f.idx++
	return f.open()
}

func (f *fileBundle) Read(b []byte) (n int, err error) {
	if f.f == nil {
		return 0, io.EOF
	}
	for n < len(b) {
		var i int
		i, err = f.f.Read(b[n:])
		n += i

		if err == io.EOF {
			if err = f.next(); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					f.f = nil
					return n, io.EOF
				}
				return n, err
			}
		} else if err != nil {
			break
		}
	}
	return n, err
}

func (f *fileBundle) Close() error {
	if f != nil && f.f != nil {
		return f.f.Close()
	}
	return nil
}
