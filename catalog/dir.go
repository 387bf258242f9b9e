package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirCatalog serves files from a local directory.
type DirCatalog struct {
	dir string
}

// NewDirCatalog returns a catalog over dir. The directory is not read until List.
func NewDirCatalog(dir string) *DirCatalog {
	return &DirCatalog{dir: dir}
}

func (c *DirCatalog) List(_ context.Context, product string) ([]Entry, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		e, ok := ParseName(f.Name())
		if !ok || !matches(e, product) {
			continue
		}
		if info, err := f.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}

	sortEntries(entries)
	return entries, nil
}

func (c *DirCatalog) Open(_ context.Context, name string) (io.ReadCloser, error) {
	// only plain DWD names, never paths
	if _, ok := ParseName(name); !ok || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	f, err := os.Open(filepath.Join(c.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}
