// SPDX-License-Identifier: MPL-2.0

// Package source abstracts the filesystems igor reads from and writes to.
// Thundercloud and invar trees are read-only views; the consumer project
// is an OutputSink whose writes are atomic so a crashed run never leaves
// a half-written target behind.
//
// Both sides are backed by billy filesystems, so production code runs on
// osfs while tests assemble fixture trees in memfs without touching disk.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

type (
	// Entry is one directory member of a source tree.
	Entry struct {
		Name  string
		IsDir bool
	}

	// Tree is a read-only view over a source directory, rooted so that
	// callers only ever use paths relative to it.
	Tree struct {
		fs billy.Filesystem
	}

	// OutputSink is the writable side: the consumer project directory.
	OutputSink struct {
		fs billy.Filesystem
	}
)

// NewTree wraps a billy filesystem as a read-only source tree.
func NewTree(fsys billy.Filesystem) *Tree {
	return &Tree{fs: fsys}
}

// NewOSTree returns a Tree rooted at dir on the host filesystem.
func NewOSTree(dir string) *Tree {
	return NewTree(osfs.New(dir))
}

// List returns the entries of dir sorted by name. A missing directory is
// reported as fs.ErrNotExist.
func (t *Tree) List(dir string) ([]Entry, error) {
	infos, err := t.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{Name: info.Name(), IsDir: info.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Read returns the contents of the file at p.
func (t *Tree) Read(p string) ([]byte, error) {
	data, err := util.ReadFile(t.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Exists reports whether p names an existing file or directory.
func (t *Tree) Exists(p string) bool {
	_, err := t.fs.Stat(p)
	return err == nil
}

// IsDir reports whether p names an existing directory.
func (t *Tree) IsDir(p string) bool {
	info, err := t.fs.Stat(p)
	return err == nil && info.IsDir()
}

// NewOutputSink wraps a billy filesystem as the writable project side.
func NewOutputSink(fsys billy.Filesystem) *OutputSink {
	return &OutputSink{fs: fsys}
}

// NewOSOutputSink returns an OutputSink rooted at dir on the host
// filesystem.
func NewOSOutputSink(dir string) *OutputSink {
	return NewOutputSink(osfs.New(dir))
}

// Read returns the contents of the file at p.
func (s *OutputSink) Read(p string) ([]byte, error) {
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Exists reports whether p names an existing file or directory.
func (s *OutputSink) Exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil
}

// WriteAtomic writes data to p without ever exposing a partial file. The
// bytes go to a temp file in the target's directory first and land under
// the final name with a rename, so readers observe either the old content
// or the new, never a torn write. Parent directories are created as
// needed.
func (s *OutputSink) WriteAtomic(p string, data []byte, mode os.FileMode) error {
	dir := path.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := s.fs.TempFile(dir, ".igor-write-")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp for %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", p, err)
	}

	if err := s.chmod(tmpName, mode); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("set mode on %s: %w", p, err)
	}

	if err := s.fs.Rename(tmpName, p); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", p, err)
	}
	return nil
}

// Chmod adjusts the mode of an existing file. Backends without permission
// support, such as memfs, make this a no-op.
func (s *OutputSink) Chmod(p string, mode os.FileMode) error {
	if err := s.chmod(p, mode); err != nil {
		return fmt.Errorf("set mode on %s: %w", p, err)
	}
	return nil
}

func (s *OutputSink) chmod(p string, mode os.FileMode) error {
	ch, ok := s.fs.(billy.Change)
	if !ok {
		return nil
	}
	err := ch.Chmod(p, mode)
	if errors.Is(err, billy.ErrNotSupported) {
		return nil
	}
	return err
}

// Mode returns the mode of the file at p, or an error wrapping
// fs.ErrNotExist when the file is missing.
func (s *OutputSink) Mode(p string) (os.FileMode, error) {
	info, err := s.fs.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", p, err)
	}
	return info.Mode(), nil
}

// NotExist reports whether err means a missing file or directory.
func NotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist)
}
