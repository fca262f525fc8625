package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/estate/pkg/fsutil"
	"github.com/entrhq/estate/pkg/logging"
	"github.com/entrhq/estate/pkg/metrics"
	"github.com/entrhq/estate/pkg/types"
)

// DefaultPattern matches the temp files fsutil writes before a rename.
const DefaultPattern = "*" + fsutil.TempSuffix

// Cleaner removes orphaned temp files below an archive root.
type Cleaner struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCleaner returns a Cleaner. Both arguments may be nil.
func NewCleaner(logger *logging.Logger, m *metrics.Metrics) *Cleaner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Cleaner{logger: logger, metrics: m}
}

// Cleanup deletes every regular file below root whose base name matches
// pattern and returns how many were removed. Only base names are matched, so
// a pattern containing a path separator is rejected. A missing root, or one
// that is not a directory, removes nothing. A file that cannot be deleted is
// logged and skipped.
func (c *Cleaner) Cleanup(root, pattern string) (int, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if strings.ContainsAny(pattern, `/\`) {
		return 0, fmt.Errorf("archive: %w: invalid cleanup pattern %q: patterns match file names, not paths", types.ErrInvalidInput, pattern)
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("archive: %w: invalid cleanup pattern %q: %w", types.ErrInvalidInput, pattern, err)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return 0, nil
	}

	removed := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warnf("cleanup: cannot read %s: %v", path, err)
			return nil
		}
		if !d.Type().IsRegular() || !g.Match(d.Name()) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			c.logger.Warnf("cleanup: failed to remove %s: %v", path, err)
			return nil
		}
		c.logger.Debugf("cleanup: removed %s", path)
		removed++
		return nil
	})
	c.metrics.AddTempFilesRemoved(removed)
	if removed > 0 {
		c.logger.Infof("cleanup: removed %d temp files under %s", removed, root)
	}
	if walkErr != nil {
		return removed, fmt.Errorf("archive: cleanup walk failed: %w", walkErr)
	}
	return removed, nil
}

// Cleanup removes files matching pattern below root without logging or
// metrics. An empty pattern means DefaultPattern.
func Cleanup(root, pattern string) (int, error) {
	return NewCleaner(nil, nil).Cleanup(root, pattern)
}

// Prepare bootstraps root and then clears stale temp files from it. It is
// run when an operator selects a root and again at startup.
func (c *Cleaner) Prepare(root string) (int, error) {
	if err := Bootstrap(root); err != nil {
		return 0, err
	}
	n, err := c.Cleanup(root, DefaultPattern)
	if err != nil {
		return n, err
	}
	c.logger.Infof("archive root %s ready", root)
	return n, nil
}

// Prepare is Bootstrap followed by Cleanup with the default pattern.
func Prepare(root string, logger *logging.Logger) (int, error) {
	return NewCleaner(logger, nil).Prepare(root)
}
