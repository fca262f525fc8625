package people

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// NameType classifies an entry in a person's name list.
type NameType string

const (
	NamePrimary NameType = "primary"
	NameAlias   NameType = "alias"
	NameMaiden  NameType = "maiden"
)

// Valid reports whether t is a known name type.
func (t NameType) Valid() bool {
	switch t {
	case NamePrimary, NameAlias, NameMaiden:
		return true
	}
	return false
}

// UnknownDisplayName is shown for records without a primary name.
const UnknownDisplayName = "Unknown"

var recordIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_,.-]+$`)

// Name is one spelling of a person's name.
type Name struct {
	Type    NameType `yaml:"type" json:"type"`
	Given   string   `yaml:"given" json:"given"`
	Surname string   `yaml:"surname" json:"surname"`
	Suffix  string   `yaml:"suffix" json:"suffix"`
}

// Birth holds birth details.
type Birth struct {
	Date string `yaml:"date" json:"date"`
}

// Vitals holds life events.
type Vitals struct {
	Birth Birth `yaml:"birth" json:"birth"`
}

// Person is the record stored in bio.yaml.
//
// Slug and DisplayName are derived on every read and never persisted.
type Person struct {
	ID     string `yaml:"id" json:"id"`
	Names  []Name `yaml:"names" json:"names"`
	Vitals Vitals `yaml:"vitals" json:"vitals"`
	Bio    string `yaml:"bio" json:"bio"`

	Slug        string `yaml:"-" json:"slug"`
	DisplayName string `yaml:"-" json:"display_name"`
}

// Primary returns the first primary name, if any.
func (p *Person) Primary() (Name, bool) {
	for _, n := range p.Names {
		if n.Type == NamePrimary {
			return n, true
		}
	}
	return Name{}, false
}

// Validate checks the record schema.
func (p *Person) Validate() error {
	if !recordIDPattern.MatchString(p.ID) {
		return fmt.Errorf("id %q does not match %s", p.ID, recordIDPattern)
	}
	if len(p.Names) == 0 {
		return errors.New("names must not be empty")
	}
	for i, n := range p.Names {
		if !n.Type.Valid() {
			return fmt.Errorf("names[%d]: unknown type %q", i, n.Type)
		}
		if n.Given == "" {
			return fmt.Errorf("names[%d]: given name is required", i)
		}
		if n.Surname == "" {
			return fmt.Errorf("names[%d]: surname is required", i)
		}
	}
	return nil
}

// DisplayName renders "surname, given[ suffix]" from the first primary name
// of names, or UnknownDisplayName when there is none.
func DisplayName(names []Name) string {
	for _, n := range names {
		if n.Type != NamePrimary {
			continue
		}
		s := n.Surname + ", " + n.Given
		if n.Suffix != "" {
			s += " " + n.Suffix
		}
		return s
	}
	return UnknownDisplayName
}

// SafeName turns a display name into a directory-name fragment: control
// characters and * " / \ < > : ? | are dropped, the result is trimmed and
// spaces become underscores.
func SafeName(display string) string {
	var b strings.Builder
	b.Grow(len(display))
	for _, r := range display {
		if r < 0x20 || strings.ContainsRune(`*"/\<>:?|`, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}
