//go:build freebsd

package rlimit

import (
	"fmt"
	"syscall"
)

// SetRLimit raises the soft open-files limit to at least required and
// returns the limit it found. On FreeBSD the limit fields are signed.
func SetRLimit(required uint64) (uint64, error) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}
	old := uint64(rLimit.Cur)
	if old < required {
		rLimit.Cur = int64(required)
		if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
			return old, err
		}
		if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
			return old, err
		}
		if uint64(rLimit.Cur) < required {
			return old, fmt.Errorf("Could not change open files rlimit to: %d", required)
		}
	}
	return old, nil
}
