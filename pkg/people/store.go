// Package people stores person records as YAML documents in a sharded
// directory tree:
//
//	<root>/people/<c0c1>/<c2c3>/<safeName>--<id>/bio.yaml
//
// The store keeps no in-memory state between calls. Every write goes through
// an fsutil.Sink, so a reader always sees a complete document.
package people

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/entrhq/estate/pkg/document"
	"github.com/entrhq/estate/pkg/fsutil"
	"github.com/entrhq/estate/pkg/identity"
	"github.com/entrhq/estate/pkg/logging"
	"github.com/entrhq/estate/pkg/metrics"
	"github.com/entrhq/estate/pkg/security/workspace"
	"github.com/entrhq/estate/pkg/types"
)

const (
	// DirName is the records directory below the archive root.
	DirName = "people"
	// DocumentName is the file holding one person record.
	DocumentName = "bio.yaml"
	// MediaDirName holds a record's recordings. List does not look for
	// records inside it.
	MediaDirName = "recordings"

	defaultListConcurrency = 8
)

// SkipFunc is told about every document List could not read.
type SkipFunc func(path string, err error)

// Store implements create/get/list/update over a records directory.
type Store struct {
	root    string // <archive>/people
	guard   *workspace.Guard
	sink    fsutil.Sink
	logger  *logging.Logger
	metrics *metrics.Metrics
	onSkip  SkipFunc
	listN   int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the collectors the store reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithSink replaces the writer used for documents.
func WithSink(sink fsutil.Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithSkipHandler registers fn to be called for each record List skips.
// fn may be called from several goroutines at once.
func WithSkipHandler(fn SkipFunc) Option {
	return func(s *Store) { s.onSkip = fn }
}

// WithListConcurrency bounds the number of documents List parses at once.
func WithListConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.listN = n
		}
	}
}

// NewStore returns a store rooted at archiveRoot, creating the people
// directory if needed.
func NewStore(archiveRoot string, opts ...Option) (*Store, error) {
	guard, err := workspace.NewGuard(filepath.Join(archiveRoot, DirName))
	if err != nil {
		return nil, fmt.Errorf("people: %w", err)
	}
	s := &Store{
		root:   guard.Root(),
		guard:  guard,
		logger: logging.Discard(),
		listN:  defaultListConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = fsutil.NewWriter(s.metrics)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("people: failed to create records directory: %w", err)
	}
	return s, nil
}

// Root returns the absolute records directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the absolute directory of the record at slug. The slug is
// validated but the directory is not required to exist.
func (s *Store) Dir(slug string) (string, error) {
	dir, err := s.guard.Resolve(slug)
	if err != nil {
		return "", fmt.Errorf("people: %w", err)
	}
	return dir, nil
}

// Create derives the identifier for t, creates the record directory and
// writes bio.yaml unless one already exists there. An existing document is
// left as it is; the returned record is the one built from the arguments.
func (s *Store) Create(ctx context.Context, t identity.Tuple, bio string) (*Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t = t.Trimmed()
	names := []Name{{
		Type:    NamePrimary,
		Given:   t.Given,
		Surname: t.Family,
		Suffix:  t.Suffix,
	}}
	p := &Person{
		ID:     identity.Derive(t),
		Names:  names,
		Vitals: Vitals{Birth: Birth{Date: t.DateOfBirth}},
		Bio:    bio,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("people: %w: %w", types.ErrInvalidInput, err)
	}
	p.DisplayName = DisplayName(names)
	p.Slug = identity.ShardKey(p.ID) + "/" + identity.DirName(SafeName(p.DisplayName), p.ID)

	dir, err := s.Dir(p.Slug)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("people: failed to create record directory: %w", err)
	}

	path := filepath.Join(dir, DocumentName)
	// The existence check and the write are not atomic; two racing creates
	// of the same person both write and the last rename wins.
	if _, err := os.Stat(path); err == nil {
		s.logger.Debugf("record %s already exists, keeping it", p.Slug)
		return p, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("people: failed to stat %s: %w", path, err)
	}

	if err := document.SaveValue(s.sink, path, p); err != nil {
		return nil, fmt.Errorf("people: failed to write record: %w", err)
	}
	s.metrics.IncRecordsCreated()
	s.logger.Infof("created record %s", p.Slug)
	return p, nil
}

// Get loads the record at slug. A slug that would leave the records
// directory is rejected with types.ErrInvalidInput before touching the
// filesystem. A missing document is reported as (nil, false, nil); a
// document that does not parse as a Person yields a *CorruptError.
func (s *Store) Get(ctx context.Context, slug string) (*Person, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	dir, err := s.Dir(slug)
	if err != nil {
		return nil, false, err
	}
	p, _, err := s.read(filepath.Join(dir, DocumentName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p.Slug = filepath.ToSlash(slug)
	return p, true, nil
}

// Update loads the record at slug, applies fn and saves the result. The
// existing YAML tree is updated in place, so comments and key order written
// by hand survive. fn must not change the identifier.
func (s *Store) Update(ctx context.Context, slug string, fn func(*Person) error) (*Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Dir(slug)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, DocumentName)
	p, doc, err := s.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("people: %w: record %s", types.ErrNotFound, slug)
	}
	if err != nil {
		return nil, err
	}

	id := p.ID
	if err := fn(p); err != nil {
		return nil, err
	}
	if p.ID != id {
		return nil, fmt.Errorf("people: %w: id cannot change (%s -> %s)", types.ErrInvalidInput, id, p.ID)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("people: %w: %w", types.ErrInvalidInput, err)
	}

	if err := doc.Encode(p); err != nil {
		return nil, fmt.Errorf("people: failed to encode record: %w", err)
	}
	if err := document.Save(s.sink, path, doc); err != nil {
		return nil, fmt.Errorf("people: failed to write record: %w", err)
	}
	p.Slug = filepath.ToSlash(slug)
	p.DisplayName = DisplayName(p.Names)
	s.logger.Infof("updated record %s", p.Slug)
	return p, nil
}

// read loads and validates one document. Errors satisfying
// errors.Is(err, fs.ErrNotExist) mean the file is absent; I/O errors are
// returned wrapped; anything else is a *CorruptError.
func (s *Store) read(path string) (*Person, *document.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("people: failed to read %s: %w", path, err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, nil, &CorruptError{Path: path, Err: err}
	}
	for _, key := range [][]string{{"id"}, {"names"}, {"vitals", "birth", "date"}} {
		if !doc.Has(key...) {
			return nil, nil, &CorruptError{Path: path, Err: fmt.Errorf("missing required key %q", strings.Join(key, "."))}
		}
	}
	var p Person
	if err := doc.Decode(&p); err != nil {
		return nil, nil, &CorruptError{Path: path, Err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, nil, &CorruptError{Path: path, Err: err}
	}
	dirName := filepath.Base(filepath.Dir(path))
	if id, ok := identity.IDFromDirName(dirName); !ok || id != p.ID {
		return nil, nil, &CorruptError{Path: path, Err: fmt.Errorf("directory %q does not carry id %q", dirName, p.ID)}
	}
	p.DisplayName = DisplayName(p.Names)
	return &p, doc, nil
}
