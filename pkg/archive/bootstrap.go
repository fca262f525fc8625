// Package archive validates and prepares an archive root: the directory an
// operator points the system at, typically on a removable drive.
//
// Bootstrap checks that the root is usable and provisions the records
// directory. Cleanup removes temp files an interrupted write left behind.
// Prepare runs both and is what configuration and startup call.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/entrhq/estate/pkg/people"
	"github.com/entrhq/estate/pkg/types"
)

// Bootstrap validates root and creates root/people if needed. Checks run in
// order and the first failure is returned:
//
//  1. root exists (types.ErrInvalidInput)
//  2. root is a directory (types.ErrInvalidInput)
//  3. the process can write to root (types.ErrPermission)
//  4. root/people is absent or a directory (types.ErrInvalidInput)
//
// Calling Bootstrap again on a prepared root is a no-op.
func Bootstrap(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("archive: %w: path does not exist: %s", types.ErrInvalidInput, root)
	}
	if err != nil {
		return fmt.Errorf("archive: failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive: %w: path is not a directory: %s", types.ErrInvalidInput, root)
	}
	if err := checkWritable(root); err != nil {
		return fmt.Errorf("archive: %w: %s is not writable: %v", types.ErrPermission, root, err)
	}

	peopleDir := filepath.Join(root, people.DirName)
	if info, err := os.Stat(peopleDir); err == nil && !info.IsDir() {
		return fmt.Errorf("archive: %w: %s exists and is not a directory", types.ErrInvalidInput, peopleDir)
	}
	if err := os.MkdirAll(peopleDir, 0o755); err != nil {
		return fmt.Errorf("archive: failed to create %s: %w", peopleDir, err)
	}
	return nil
}
