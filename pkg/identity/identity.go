// Package identity derives stable person identifiers from identity attributes
// and maps them onto the two-level shard directories of the archive.
//
// An identifier is the base-36 rendering of the UTF-8 bytes of the canonical
// string "<family>|<given>|<suffix>|<dob>", read as one big-endian unsigned
// integer. The mapping is a pure function: no randomness, no clock. The pipe
// separator is not escaped, so tuples whose fields themselves contain '|' can
// share a canonical string and therefore an identifier.
package identity

import (
	"math/big"
	"regexp"
	"strings"
)

// Separator joins the tuple fields in the canonical string.
const Separator = "|"

// DirSeparator precedes the identifier in a record directory name.
const DirSeparator = "--"

var idPattern = regexp.MustCompile(`^[0-9a-z]+$`)

// Tuple is the set of attributes a person identifier is derived from.
type Tuple struct {
	Family      string
	Given       string
	Suffix      string
	DateOfBirth string
}

// Trimmed returns a copy of t with surrounding whitespace removed from every field.
func (t Tuple) Trimmed() Tuple {
	return Tuple{
		Family:      strings.TrimSpace(t.Family),
		Given:       strings.TrimSpace(t.Given),
		Suffix:      strings.TrimSpace(t.Suffix),
		DateOfBirth: strings.TrimSpace(t.DateOfBirth),
	}
}

// Canonical returns the pipe-joined form of the trimmed tuple.
func Canonical(t Tuple) string {
	t = t.Trimmed()
	return strings.Join([]string{t.Family, t.Given, t.Suffix, t.DateOfBirth}, Separator)
}

// Derive returns the identifier for t. Every tuple, including the all-empty
// one, yields a valid identifier.
func Derive(t Tuple) string {
	return EncodeBase36([]byte(Canonical(t)))
}

// EncodeBase36 interprets b as a big-endian unsigned integer and renders it
// with digits 0-9a-z, most significant first. Empty input and all-zero input
// both encode as "0".
func EncodeBase36(b []byte) string {
	// big.Int.Text uses lower-case letters for digits >= 10 and emits "0"
	// for zero, which is exactly the encoding we need.
	return new(big.Int).SetBytes(b).Text(36)
}

// IsValidID reports whether id only uses the identifier alphabet.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// DirName builds the record directory name "<safeName>--<id>".
func DirName(safeName, id string) string {
	return safeName + DirSeparator + id
}

// IDFromDirName recovers the identifier encoded as the suffix of a record
// directory name, without reading the document inside it.
func IDFromDirName(name string) (string, bool) {
	i := strings.LastIndex(name, DirSeparator)
	if i < 0 {
		return "", false
	}
	id := name[i+len(DirSeparator):]
	if !IsValidID(id) {
		return "", false
	}
	return id, true
}
