package core

import (
	"io"
	"os"
)

// TempPath returns the path stripped output for path is written to.
func TempPath(path string) string {
	return path + Postfix
}

// WriteTemp writes data to path+Postfix with the original's permissions and
// syncs it. On failure the partial temporary is removed.
func WriteTemp(path string, data []byte) (string, error) {
	tmp := TempPath(path)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode(path))
	if err != nil {
		return "", IOError(tmp, "create temporary", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", IOError(tmp, "write temporary", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", IOError(tmp, "sync temporary", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", IOError(tmp, "close temporary", err)
	}
	return tmp, nil
}

// CopyToTemp copies path to path+Postfix, for libraries that edit a file in
// place.
func CopyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", IOError(path, "open", err)
	}
	defer src.Close()

	tmp := TempPath(path)
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode(path))
	if err != nil {
		return "", IOError(tmp, "create temporary", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return "", IOError(tmp, "copy", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return "", IOError(tmp, "close temporary", err)
	}
	return tmp, nil
}

// SyncFile flushes a temporary edited by a third-party library.
func SyncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return IOError(path, "open temporary", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return IOError(path, "sync temporary", err)
	}
	return nil
}

// Commit finalizes a fully written temporary. In backup mode the temporary
// is the output and the original is left alone. Otherwise the original's
// content is overwritten and the temporary is renamed over it.
//
// A failure while the original is still intact removes the temporary. Once
// any byte of the original has been erased, the temporary is the only clean
// copy and is kept; the returned error names it.
func Commit(original, tmp string, opts Options) (string, error) {
	opts = opts.WithDefaults(original)
	if opts.Backup {
		opts.Logger.Debug("stripped copy kept as backup output")
		return tmp, nil
	}
	touched, err := overwrite(original, opts.ShredPasses)
	if err != nil {
		if !touched {
			Discard(tmp)
			return "", IOError(original, "erase original", err)
		}
		return "", IOError(original, "erase original; stripped copy kept at "+tmp, err)
	}
	if err := os.Rename(tmp, original); err != nil {
		return "", IOError(original, "replace original; stripped copy kept at "+tmp, err)
	}
	return original, nil
}

// Finish writes data as the stripped form of path and commits it.
func Finish(path string, data []byte, opts Options) (string, error) {
	tmp, err := WriteTemp(path, data)
	if err != nil {
		return "", err
	}
	return Commit(path, tmp, opts)
}

// Discard removes a temporary that will not be committed.
func Discard(tmp string) {
	if tmp != "" {
		os.Remove(tmp)
	}
}

func fileMode(path string) os.FileMode {
	if st, err := os.Stat(path); err == nil {
		return st.Mode().Perm()
	}
	return 0o644
}
