package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Mirror copies entries from src into dir with at most parallel concurrent transfers. Files
// already present with the entry's size are skipped. progress, when set, is called once per
// entry that is in place, from the worker goroutines.
func Mirror(ctx context.Context, src Catalog, entries []Entry, dir string, parallel int, progress func(Entry)) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if parallel < 1 {
		parallel = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, e := range entries {
		e := e
		g.Go(func() error {
			if err := mirrorOne(ctx, src, e, dir); err != nil {
				return err
			}
			if progress != nil {
				progress(e)
			}
			return nil
		})
	}
	return g.Wait()
}

func mirrorOne(ctx context.Context, src Catalog, e Entry, dir string) error {
	dest := filepath.Join(dir, e.Name)
	if info, err := os.Stat(dest); err == nil && e.Size > 0 && info.Size() == e.Size {
		logrus.Debugf("%s already mirrored", e.Name)
		return nil
	}

	r, err := src.Open(ctx, e.Name)
	if err != nil {
		return err
	}
	defer r.Close()

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("mirror %s: %w", e.Name, err)
	}

	logrus.Debugf("mirrored %s (%d bytes)", e.Name, n)
	return os.Rename(part, dest)
}
