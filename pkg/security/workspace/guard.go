// Package workspace enforces root boundaries on externally supplied
// locators such as record slugs and upload filenames. It rejects path
// traversal before any filesystem access happens.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/entrhq/estate/pkg/types"
)

// Guard enforces boundary restrictions on paths relative to a root directory.
type Guard struct {
	root string // Absolute, cleaned root
}

// NewGuard creates a guard for root. The directory does not have to exist yet.
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace: %w: root directory cannot be empty", types.ErrInvalidInput)
	}
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: failed to resolve root directory: %w", err)
	}
	return &Guard{root: filepath.Clean(absPath)}, nil
}

// Root returns the absolute root directory.
func (g *Guard) Root() string {
	return g.root
}

// ValidateRelative checks that rel is a relative locator that cannot leave
// the root. Both '/' and '\' count as separators regardless of platform, so
// a locator is judged the same way on every OS.
//
// Returns an error if:
// - rel is empty
// - rel is absolute or starts with a separator or a volume name
// - any segment of rel is ".."
func ValidateRelative(rel string) error {
	if rel == "" {
		return fmt.Errorf("workspace: %w: path cannot be empty", types.ErrInvalidInput)
	}
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return fmt.Errorf("workspace: %w: path %q must be relative", types.ErrInvalidInput, rel)
	}
	for _, seg := range splitSegments(rel) {
		if seg == ".." {
			return fmt.Errorf("workspace: %w: path %q contains a parent directory segment", types.ErrInvalidInput, rel)
		}
	}
	return nil
}

// Resolve validates rel and returns its absolute path under the root.
func (g *Guard) Resolve(rel string) (string, error) {
	if err := ValidateRelative(rel); err != nil {
		return "", err
	}
	abs := filepath.Join(g.root, filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/")))
	if !g.IsWithin(abs) {
		return "", fmt.Errorf("workspace: %w: path %q is outside %s", types.ErrInvalidInput, rel, g.root)
	}
	return abs, nil
}

// IsWithin reports whether absPath is the root or lies below it.
func (g *Guard) IsWithin(absPath string) bool {
	clean := filepath.Clean(absPath)
	return clean == g.root || strings.HasPrefix(clean, g.root+string(filepath.Separator))
}

// MakeRelative converts an absolute path under the root into a
// forward-slash relative locator.
func (g *Guard) MakeRelative(absPath string) (string, error) {
	if !g.IsWithin(absPath) {
		return "", fmt.Errorf("workspace: path '%s' is not within %s", absPath, g.root)
	}
	rel, err := filepath.Rel(g.root, absPath)
	if err != nil {
		return "", fmt.Errorf("workspace: failed to make path relative: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// ValidateBaseName checks that name is a plain file name: non-empty, no
// separators, not "." or "..".
func ValidateBaseName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("workspace: %w: invalid file name %q", types.ErrInvalidInput, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("workspace: %w: file name %q contains a path separator", types.ErrInvalidInput, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("workspace: %w: file name %q contains a NUL byte", types.ErrInvalidInput, name)
	}
	return nil
}

func splitSegments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
}
