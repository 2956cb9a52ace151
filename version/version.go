// Package version implements Debian package version strings.
//
// A version has the form [epoch:]upstream_version[-debian_revision]. This
// package parses a version into its three components, renders it back to the
// exact same text, and orders versions the way archive tooling does to decide
// whether one package upgrades another.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-version
package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVersion is returned when a string is not a valid Debian version.
var ErrInvalidVersion = errors.New("invalid version")

// Version is a parsed Debian version.
//
// The canonical full string is stored alongside its decomposed components.
// Setters on a component rebuild the full string, and setting the full string
// re-derives every component, so both views always agree.
type Version struct {
	full     string
	epoch    string
	upstream string
	revision string
}

// Parse parses s as a Debian version.
// The returned error wraps ErrInvalidVersion.
func Parse(s string) (*Version, error) {
	v := &Version{}
	if err := v.Set(s); err != nil {
		return nil, err
	}
	return v, nil
}

// MustParse is like Parse but panics if s is not a valid version.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// decompose splits s into epoch, upstream version and debian revision.
func decompose(s string) (epoch, upstream, revision string, err error) {
	rest := s
	if i := strings.LastIndex(rest, ":"); i != -1 {
		epoch, rest = rest[:i], rest[i+1:]
		if epoch == "" || !isDigits(epoch) {
			return "", "", "", fmt.Errorf("%w %q: epoch %q is not numeric", ErrInvalidVersion, s, epoch)
		}
	}
	if i := strings.LastIndex(rest, "-"); i != -1 {
		rest, revision = rest[:i], rest[i+1:]
		if revision == "" {
			return "", "", "", fmt.Errorf("%w %q: empty debian revision", ErrInvalidVersion, s)
		}
		if c, ok := firstInvalid(revision, isRevisionChar); ok {
			return "", "", "", fmt.Errorf("%w %q: character %q not allowed in debian revision", ErrInvalidVersion, s, c)
		}
	}
	upstream = rest
	if upstream == "" {
		return "", "", "", fmt.Errorf("%w %q: empty upstream version", ErrInvalidVersion, s)
	}
	if c, ok := firstInvalid(upstream, isUpstreamChar); ok {
		return "", "", "", fmt.Errorf("%w %q: character %q not allowed in upstream version", ErrInvalidVersion, s, c)
	}
	return epoch, upstream, revision, nil
}

func compose(epoch, upstream, revision string) string {
	var b strings.Builder
	if epoch != "" {
		b.WriteString(epoch)
		b.WriteByte(':')
	}
	b.WriteString(upstream)
	if revision != "" {
		b.WriteByte('-')
		b.WriteString(revision)
	}
	return b.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isUpstreamChar(c byte) bool {
	return isAlnum(c) || c == '.' || c == '+' || c == '~' || c == '-'
}

func isRevisionChar(c byte) bool {
	return isAlnum(c) || c == '.' || c == '+' || c == '~'
}

func firstInvalid(s string, valid func(byte) bool) (byte, bool) {
	for i := 0; i < len(s); i++ {
		if !valid(s[i]) {
			return s[i], true
		}
	}
	return 0, false
}

// String returns the full version string, exactly as parsed or as rebuilt
// by the last setter.
func (v *Version) String() string {
	return v.full
}

// Epoch returns the epoch, or "" when the version has none.
// An absent epoch is distinct from an explicit "0" for rendering, but both
// order the same.
func (v *Version) Epoch() string {
	return v.epoch
}

// UpstreamVersion returns the upstream part of the version.
func (v *Version) UpstreamVersion() string {
	return v.upstream
}

// DebianRevision returns the debian revision (everything after the last
// hyphen), or "" when the version has none.
func (v *Version) DebianRevision() string {
	return v.revision
}

// Set replaces the whole version with s and re-derives every component.
// On error v is left unchanged.
func (v *Version) Set(s string) error {
	epoch, upstream, revision, err := decompose(s)
	if err != nil {
		return err
	}
	*v = Version{full: s, epoch: epoch, upstream: upstream, revision: revision}
	return nil
}

// SetEpoch replaces the epoch. An empty epoch removes it.
func (v *Version) SetEpoch(epoch string) error {
	return v.setComponents(epoch, v.upstream, v.revision)
}

// SetUpstreamVersion replaces the upstream version.
func (v *Version) SetUpstreamVersion(upstream string) error {
	return v.setComponents(v.epoch, upstream, v.revision)
}

// SetDebianRevision replaces the debian revision. An empty revision removes it.
func (v *Version) SetDebianRevision(revision string) error {
	return v.setComponents(v.epoch, v.upstream, revision)
}

// setComponents rebuilds the full string and checks that it decomposes into
// the very same components; a component that would be re-split differently
// (for example an upstream version containing a hyphen without a revision) is
// rejected.
func (v *Version) setComponents(epoch, upstream, revision string) error {
	full := compose(epoch, upstream, revision)
	e, u, r, err := decompose(full)
	if err != nil {
		return err
	}
	if e != epoch || u != upstream || r != revision {
		return fmt.Errorf("%w %q: components %q, %q, %q are ambiguous", ErrInvalidVersion, full, epoch, upstream, revision)
	}
	*v = Version{full: full, epoch: epoch, upstream: upstream, revision: revision}
	return nil
}

// Clone returns an independent copy of v.
func (v *Version) Clone() *Version {
	c := *v
	return &c
}

// MarshalText implements encoding.TextMarshaler.
func (v *Version) MarshalText() ([]byte, error) {
	return []byte(v.full), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	return v.Set(string(text))
}
