package people

import (
	"fmt"

	"github.com/entrhq/estate/pkg/types"
)

// CorruptError reports a bio.yaml that exists but cannot be read as a
// Person. It matches types.ErrCorrupt under errors.Is.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("people: corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() []error {
	return []error{types.ErrCorrupt, e.Err}
}
