package domain

import (
	"fmt"
	"strings"
)

// Version is the file format version embedded in a published file name.
type Version string

const (
	VersionV03     Version = "V03"
	VersionV04     Version = "V04"
	VersionUnknown Version = "UNKNOWN"
)

// VersionFromString maps a V\d{2} token to a Version.
// Unrecognized tokens map to VersionUnknown; this never fails.
func VersionFromString(s string) Version {
	switch Version(strings.ToUpper(strings.TrimSpace(s))) {
	case VersionV03:
		return VersionV03
	case VersionV04:
		return VersionV04
	default:
		return VersionUnknown
	}
}

// ParseRequiredVersion parses a configured version strictly.
// Returns ErrValidation for anything other than a supported version.
func ParseRequiredVersion(s string) (Version, error) {
	v := VersionFromString(s)
	if v == VersionUnknown {
		return VersionUnknown, fmt.Errorf("%w: unsupported file version %q", ErrValidation, s)
	}
	return v, nil
}

// IsKnown reports whether v is a supported version.
func (v Version) IsKnown() bool {
	return v == VersionV03 || v == VersionV04
}

// String returns the string representation.
func (v Version) String() string {
	return string(v)
}
