package core

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
)

// DefaultShredPasses is used when Options.ShredPasses is unset.
const DefaultShredPasses = 3

const shredChunk = 64 * 1024

// Overwrite replaces the content of path with random bytes, passes times,
// syncing after each pass. The file keeps its size and stays in place.
func Overwrite(path string, passes int) error {
	_, err := overwrite(path, passes)
	return err
}

// overwrite reports whether any byte of path was replaced before an error.
func overwrite(path string, passes int) (touched bool, err error) {
	if passes <= 0 {
		passes = DefaultShredPasses
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	size := st.Size()
	buf := make([]byte, shredChunk)

	for pass := 0; pass < passes; pass++ {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return touched, err
		}
		for left := size; left > 0; {
			n := int64(len(buf))
			if left < n {
				n = left
			}
			if _, err := rand.Read(buf[:n]); err != nil {
				return touched, fmt.Errorf("random fill: %w", err)
			}
			w, err := f.Write(buf[:n])
			if w > 0 {
				touched = true
			}
			if err != nil {
				return touched, err
			}
			left -= n
		}
		if err := f.Sync(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// SecureRemove overwrites path and then unlinks it, so the erased content
// cannot be recovered from the file's former blocks.
func SecureRemove(path string, passes int) error {
	if err := Overwrite(path, passes); err != nil {
		return IOError(path, "overwrite before unlink", err)
	}
	if err := os.Remove(path); err != nil {
		return IOError(path, "unlink", err)
	}
	return nil
}
