package people

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/estate/pkg/identity"
)

// List returns every readable record below the records directory, in walk
// order. Documents are found at any depth; the shard layout is not relied
// on. A record that cannot be read is skipped: it is logged, counted and
// passed to the skip handler, and the listing continues.
func (s *Store) List(ctx context.Context) ([]*Person, error) {
	paths, err := s.findDocuments(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*Person, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.listN)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, _, err := s.read(path)
			if err != nil {
				s.skip(path, err)
				return nil
			}
			slug, err := s.guard.MakeRelative(filepath.Dir(path))
			if err != nil {
				s.skip(path, err)
				return nil
			}
			p.Slug = slug
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	people := make([]*Person, 0, len(results))
	for _, p := range results {
		if p != nil {
			people = append(people, p)
		}
	}
	s.metrics.ObserveListed(len(people))
	return people, nil
}

func (s *Store) findDocuments(ctx context.Context) ([]string, error) {
	if _, err := os.Stat(s.root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == s.root {
				return err
			}
			// An unreadable subtree should not hide the rest of the archive.
			s.logger.Warnf("skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() && d.Name() == MediaDirName && isRecordDir(filepath.Dir(path)) {
			// Recording sidecars are YAML too; bio.mp4 has a bio.yaml.
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == DocumentName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("people: failed to scan %s: %w", s.root, err)
	}
	return paths, nil
}

// isRecordDir reports whether dir is named like a record directory.
func isRecordDir(dir string) bool {
	_, ok := identity.IDFromDirName(filepath.Base(dir))
	return ok
}

func (s *Store) skip(path string, err error) {
	s.logger.Warnf("skipping unreadable record %s: %v", path, err)
	s.metrics.IncRecordsSkipped()
	if s.onSkip != nil {
		s.onSkip(path, err)
	}
}
