package scanvault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
)

// shredChunkSize is the buffer size used when overwriting file contents.
const shredChunkSize = 32 * 1024

// defaultDeletePasses is the minimum overwrite pass count: zeros, then
// random bytes.
const defaultDeletePasses = 2

// SecureFileDeleter destroys plaintext files by overwriting their full
// on-disk length before unlinking. The first pass writes zeros and every
// further pass writes random bytes; each pass is synced to disk.
type SecureFileDeleter struct {
	passes int
}

// DeleterOption configures a SecureFileDeleter.
type DeleterOption func(*SecureFileDeleter)

// WithDeletePasses sets the overwrite pass count. Values below two are
// raised to two.
func WithDeletePasses(passes int) DeleterOption {
	return func(d *SecureFileDeleter) {
		if passes > defaultDeletePasses {
			d.passes = passes
		}
	}
}

// NewSecureFileDeleter creates a deleter with the default two overwrite
// passes.
func NewSecureFileDeleter(opts ...DeleterOption) *SecureFileDeleter {
	d := &SecureFileDeleter{passes: defaultDeletePasses}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SecureDeleteFile overwrites and unlinks the file at path. It returns
// (true, nil) when the file was destroyed and (false, nil) when no file
// exists at path; a missing file is a no-op, not an error. I/O failures
// are wrapped as *SecureDeleteError.
func (d *SecureFileDeleter) SecureDeleteFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &SecureDeleteError{Path: path, Err: err}
	}
	if info.IsDir() {
		return false, &SecureDeleteError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	if err := d.overwrite(path, info.Size()); err != nil {
		return false, &SecureDeleteError{Path: path, Err: err}
	}
	if err := os.Remove(path); err != nil {
		return false, &SecureDeleteError{Path: path, Err: err}
	}
	return true, nil
}

// SecureDeleteFiles applies SecureDeleteFile to every path, continuing
// past individual failures. The result maps each path to whether its file
// was destroyed; paths that were already gone or failed map to false.
func (d *SecureFileDeleter) SecureDeleteFiles(paths []string) map[string]bool {
	results := make(map[string]bool, len(paths))
	for _, path := range paths {
		deleted, _ := d.SecureDeleteFile(path)
		results[path] = deleted
	}
	return results
}

func (d *SecureFileDeleter) overwrite(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	for pass := 0; pass < d.passes; pass++ {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := writePass(f, size, pass == 0); err != nil {
			return err
		}
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}

func writePass(f *os.File, size int64, zeros bool) error {
	buf := make([]byte, shredChunkSize)
	for remaining := size; remaining > 0; {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		chunk := buf[:n]
		if !zeros {
			if _, err := rand.Read(chunk); err != nil {
				return err
			}
		}
		if _, err := f.Write(chunk); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
