//go:build !unix

package archive

import (
	"os"
)

// checkWritable creates and removes a probe file, since there is no
// access(2) to ask.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".estate-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
