package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/entrhq/estate/pkg/document"
	"github.com/entrhq/estate/pkg/fsutil"
	"github.com/entrhq/estate/pkg/logging"
	"github.com/entrhq/estate/pkg/metrics"
	"github.com/entrhq/estate/pkg/people"
	"github.com/entrhq/estate/pkg/security/workspace"
	"github.com/entrhq/estate/pkg/transcription"
	"github.com/entrhq/estate/pkg/types"
)

// ErrNoProvider is returned by Transcribe when no provider is configured.
var ErrNoProvider = errors.New("recordings: no transcription provider configured")

// PersonStore is the part of people.Store the importer needs.
type PersonStore interface {
	Get(ctx context.Context, slug string) (*people.Person, bool, error)
	Dir(slug string) (string, error)
}

// Importer files recordings under person directories.
type Importer struct {
	store    PersonStore
	sink     fsutil.Sink
	provider transcription.Provider
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// Option configures an Importer.
type Option func(*Importer)

// WithProvider sets the transcription provider used by Transcribe.
func WithProvider(p transcription.Provider) Option {
	return func(i *Importer) { i.provider = p }
}

// WithSink replaces the writer used for media, sidecars and transcripts.
func WithSink(sink fsutil.Sink) Option {
	return func(i *Importer) { i.sink = sink }
}

// WithLogger sets the importer logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *Importer) { i.logger = l }
}

// WithMetrics sets the collectors the importer reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Importer) { i.metrics = m }
}

// NewImporter returns an Importer over store.
func NewImporter(store PersonStore, opts ...Option) *Importer {
	i := &Importer{store: store, logger: logging.Discard()}
	for _, opt := range opts {
		opt(i)
	}
	if i.sink == nil {
		i.sink = fsutil.NewWriter(i.metrics)
	}
	return i
}

// Result describes an imported recording.
type Result struct {
	// RelPath is the media path relative to the person directory, with
	// forward slashes, as accepted by Transcribe.
	RelPath   string    `json:"path"`
	Size      int64     `json:"size"`
	Recording Recording `json:"recording"`
}

// Import streams r into the person's recordings directory as filename and
// writes its sidecar with status pending_transcription. An existing
// recording of the same name is replaced.
func (i *Importer) Import(ctx context.Context, slug, filename, contentType string, r io.Reader) (*Result, error) {
	if err := workspace.ValidateBaseName(filename); err != nil {
		return nil, fmt.Errorf("recordings: %w", err)
	}
	personDir, err := i.personDir(ctx, slug)
	if err != nil {
		return nil, err
	}

	kind := KindFor(contentType)
	dir := filepath.Join(personDir, DirName, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recordings: failed to create %s: %w", dir, err)
	}

	n, err := i.sink.WriteStream(ctx, filepath.Join(dir, filename), r)
	if err != nil {
		return nil, fmt.Errorf("recordings: failed to store %s: %w", filename, err)
	}

	rec := Recording{
		OriginalFilename: filename,
		ContentType:      contentType,
		IngestStatus:     StatusPendingTranscription,
	}
	if err := document.SaveValue(i.sink, filepath.Join(dir, SidecarName(filename)), rec); err != nil {
		return nil, fmt.Errorf("recordings: failed to write sidecar: %w", err)
	}

	i.metrics.IncRecordingsImported()
	i.logger.Infof("imported %s (%d bytes) for %s", filename, n, slug)
	return &Result{
		RelPath:   path.Join(DirName, kind, filename),
		Size:      n,
		Recording: rec,
	}, nil
}

// Transcribe runs the provider on the recording at relPath (relative to the
// person directory), writes the transcript next to it and records the
// outcome in the sidecar. A provider failure is stored in the sidecar as
// transcription_failed and also returned.
func (i *Importer) Transcribe(ctx context.Context, slug, relPath string) (*Recording, error) {
	if i.provider == nil {
		return nil, ErrNoProvider
	}
	if err := workspace.ValidateRelative(relPath); err != nil {
		return nil, fmt.Errorf("recordings: %w", err)
	}
	personDir, err := i.personDir(ctx, slug)
	if err != nil {
		return nil, err
	}

	mediaPath := filepath.Join(personDir, filepath.FromSlash(strings.ReplaceAll(relPath, `\`, "/")))
	mediaName := filepath.Base(mediaPath)
	sidecarPath := filepath.Join(filepath.Dir(mediaPath), SidecarName(mediaName))

	doc, err := document.Load(sidecarPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("recordings: %w: no recording %s for %s", types.ErrNotFound, relPath, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("recordings: %w: %w", types.ErrCorrupt, err)
	}
	var rec Recording
	if err := doc.Decode(&rec); err != nil {
		return nil, fmt.Errorf("recordings: %w: sidecar %s: %w", types.ErrCorrupt, sidecarPath, err)
	}

	text, terr := i.provider.Transcribe(ctx, mediaPath)
	i.metrics.ObserveTranscription(i.provider.Name(), terr)
	if terr != nil {
		rec.IngestStatus = StatusTranscriptionFailed
		rec.ErrorMessage = terr.Error()
		i.logger.Warnf("transcription of %s for %s failed: %v", relPath, slug, terr)
	} else {
		transcriptRel := path.Join(path.Dir(filepath.ToSlash(relPath)), TranscriptName(mediaName))
		if err := i.sink.WriteFile(filepath.Join(filepath.Dir(mediaPath), TranscriptName(mediaName)), []byte(text+"\n")); err != nil {
			return nil, fmt.Errorf("recordings: failed to write transcript: %w", err)
		}
		rec.IngestStatus = StatusTranscribed
		rec.ErrorMessage = ""
		rec.TranscriptPath = transcriptRel
		i.logger.Infof("transcribed %s for %s", relPath, slug)
	}

	if err := doc.Encode(rec); err != nil {
		return nil, fmt.Errorf("recordings: failed to encode sidecar: %w", err)
	}
	if err := document.Save(i.sink, sidecarPath, doc); err != nil {
		return nil, fmt.Errorf("recordings: failed to write sidecar: %w", err)
	}
	if terr != nil {
		return &rec, fmt.Errorf("recordings: transcription failed: %w", terr)
	}
	return &rec, nil
}

// personDir returns the directory of an existing person record.
func (i *Importer) personDir(ctx context.Context, slug string) (string, error) {
	_, ok, err := i.store.Get(ctx, slug)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("recordings: %w: person %s", types.ErrNotFound, slug)
	}
	return i.store.Dir(slug)
}
