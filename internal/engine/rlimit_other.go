//go:build !unix

package engine

import "errors"

func descriptorLimit() (uint64, error) {
	return 0, errors.New("descriptor limit not available on this platform")
}
