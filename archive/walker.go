// Package archive walks zip archives holding Ion streams.
package archive

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/hidez8891/zip"
)

// Entry is a regular file inside archive.
type Entry struct {
	Name string
	// NonUTF8 is set when name is in some legacy code page
	NonUTF8 bool
	Size    uint64
	file    *zip.File
}

// Open returns reader of decompressed entry content.
func (e Entry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// WalkFunc is called for every file of archive Walk visits. Returned error
// stops the walk.
type WalkFunc func(archive string, e Entry) error

// Walk calls fn for files which names start with prefix, in archive order.
// Archive with absolute or parent relative names is rejected as a whole.
func Walk(archive, prefix string, fn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		e := Entry{Name: f.Name, NonUTF8: f.NonUTF8, Size: f.UncompressedSize64, file: f}
		if err := fn(archive, e); err != nil {
			return err
		}
	}
	return nil
}

// IsArchive checks file content for zip signature.
func IsArchive(name string) (bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
