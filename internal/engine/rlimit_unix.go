//go:build unix

package engine

import "golang.org/x/sys/unix"

// descriptorLimit returns the soft RLIMIT_NOFILE of the process.
func descriptorLimit() (uint64, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, err
	}
	return uint64(rl.Cur), nil
}
