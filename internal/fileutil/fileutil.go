package fileutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile buffers writes into a temp file next to its target and renames
// it into place on Commit, so readers never see a half written report.
type AtomicFile struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
	done bool
}

// CreateAtomic opens a temp file for path, creating the parent directory.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	return &AtomicFile{path: path, tmp: tmp, buf: bufio.NewWriter(tmp)}, nil
}

// Path returns the final location of the file.
func (f *AtomicFile) Path() string {
	return f.path
}

func (f *AtomicFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

// WriteString writes s.
func (f *AtomicFile) WriteString(s string) (int, error) {
	return f.buf.WriteString(s)
}

// Commit flushes, syncs and renames the temp file to its final path with
// mode 0o644.
func (f *AtomicFile) Commit() error {
	if f.done {
		return fmt.Errorf("commit %s: already closed", f.path)
	}
	f.done = true
	if err := f.buf.Flush(); err != nil {
		f.discard()
		return fmt.Errorf("flush %s: %w", f.path, err)
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return fmt.Errorf("sync %s: %w", f.path, err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	if err := os.Chmod(f.tmp.Name(), 0o644); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("chmod %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("rename %s: %w", f.path, err)
	}
	return nil
}

// Abort removes the temp file. It is a no-op after Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.discard()
}

func (f *AtomicFile) discard() {
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}
