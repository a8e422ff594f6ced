//go:build !windows

package retrieve

import (
	"errors"
	"os"
)

// removeFile removes path. A missing file is not an error.
func removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
