package session

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxNameLen is the longest profile name accepted.
const MaxNameLen = 64

// ErrInvalidName is wrapped by every ValidateName failure.
var ErrInvalidName = errors.New("invalid profile name")

// A leading '-' would be read as a flag by vchatctl and vchatd.
var profilePattern = regexp.MustCompile(`^[a-z0-9_][a-z0-9_-]*$`)

// ValidateName reports whether name can be used as a profile directory.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w %q: longer than %d characters", ErrInvalidName, name, MaxNameLen)
	case !profilePattern.MatchString(name):
		return fmt.Errorf("%w %q: use lowercase letters, digits, '_' and '-', not leading '-'", ErrInvalidName, name)
	}
	return nil
}
