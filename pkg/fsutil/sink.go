package fsutil

import (
	"context"
	"io"

	"github.com/entrhq/estate/pkg/metrics"
)

// Sink is the write side every component uses for files under the archive
// root, whether it holds a complete buffer or a stream of chunks.
type Sink interface {
	WriteFile(path string, data []byte) error
	WriteStream(ctx context.Context, path string, r io.Reader) (int64, error)
}

// Writer is the Sink backed by WriteSafe and WriteSafeStream.
type Writer struct {
	metrics *metrics.Metrics
}

// NewWriter returns a Writer. m may be nil.
func NewWriter(m *metrics.Metrics) *Writer {
	return &Writer{metrics: m}
}

// WriteFile atomically replaces path with data.
func (w *Writer) WriteFile(path string, data []byte) error {
	err := WriteSafe(path, data)
	w.metrics.ObserveWrite(int64(len(data)), err)
	return err
}

// WriteStream atomically replaces path with the content of r.
func (w *Writer) WriteStream(ctx context.Context, path string, r io.Reader) (int64, error) {
	n, err := WriteSafeStream(ctx, path, r)
	w.metrics.ObserveWrite(n, err)
	return n, err
}

var _ Sink = (*Writer)(nil)
