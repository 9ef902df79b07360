package rlimit

// SetRLimit is a no-op on Windows, which has no open-files rlimit.
func SetRLimit(required uint64) (uint64, error) {
	return required, nil
}
