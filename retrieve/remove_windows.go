//go:build windows

package retrieve

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// removeFile removes path. A missing file is not an error.
//
// Virus scanners and indexers may briefly keep a handle open on a freshly
// written file; removal is retried for a few seconds and then left to
// MoveFileEx to delete at next reboot. The file is renamed aside first so a
// new download can take its place.
func removeFile(path string) error {
	tryRemove := func() error {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var lastErr error
	for range 15 {
		if lastErr = tryRemove(); lastErr == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	aside := path + ".corrupt"
	if err := os.Rename(path, aside); err != nil {
		return lastErr
	}
	p, err := windows.UTF16PtrFromString(aside)
	if err != nil {
		return lastErr
	}
	if err := windows.MoveFileEx(p, nil, windows.MOVEFILE_DELAY_UNTIL_REBOOT); err != nil {
		return lastErr
	}
	return nil
}
