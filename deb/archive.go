package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/etnz/debchangelog/changelog"
	"github.com/etnz/debchangelog/version"
)

var (
	// ErrNoChangelog is returned when the archive installs no changelog for
	// its package.
	ErrNoChangelog = errors.New("no changelog in package")

	// ErrVersionMismatch is returned by CheckVersion when the changelog and
	// the control file disagree.
	ErrVersionMismatch = errors.New("changelog does not match control file")

	// ErrUnsupportedCompression is returned for archive members compressed
	// with something else than gzip.
	ErrUnsupportedCompression = errors.New("unsupported compression")
)

// Metadata holds the control fields of a binary package needed to locate and
// check its changelog.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type Metadata struct {
	// Package is the name of the binary package.
	Package string

	// Version is the version of the binary package.
	Version *version.Version

	// Architecture is the hardware architecture, or "all".
	Architecture string

	// Maintainer is the "Name <email>" of the package maintainer.
	Maintainer string

	// Source is the source package name, when it differs from Package.
	Source string

	// SourceVersion is the source package version, when the Source field
	// gives one, as for binary-only uploads ("Source: foo (1.0-1)").
	SourceVersion *version.Version

	// ExtraFields holds every other field of the control file.
	ExtraFields map[string]string
}

// Archive is the changelog view of a .deb file: its control metadata and the
// changelog files it installs.
type Archive struct {
	Metadata Metadata

	// docs maps the absolute path of every changelog file installed under
	// /usr/share/doc to its compressed content.
	docs map[string][]byte
}

// NewArchive reads a .deb file from r.
//
// Control and data members may be plain or gzip-compressed tar archives.
func NewArchive(r io.Reader) (*Archive, error) {
	a := &Archive{
		Metadata: Metadata{ExtraFields: make(map[string]string)},
		docs:     make(map[string][]byte),
	}
	var sawControl bool

	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}
		name := strings.TrimSuffix(header.Name, "/")

		switch {
		case strings.HasPrefix(name, string(PkgControlTar)):
			tr, err := tarReader(name, arR)
			if err != nil {
				return nil, err
			}
			if err := a.readControl(tr); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			sawControl = true
		case strings.HasPrefix(name, string(PkgDataTar)):
			tr, err := tarReader(name, arR)
			if err != nil {
				return nil, err
			}
			if err := a.readData(tr); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
		}
	}

	if !sawControl {
		return nil, fmt.Errorf("missing %s member", PkgControlTar)
	}
	if a.Metadata.Package == "" {
		return nil, fmt.Errorf("control file has no %s field", FieldPackage)
	}
	return a, nil
}

// tarReader opens the tar stream of the ar member called name.
func tarReader(name string, r io.Reader) (*tar.Reader, error) {
	switch path.Ext(name) {
	case ".tar":
		return tar.NewReader(r), nil
	case ".gz":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		return tar.NewReader(gzr), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, name)
}

func (a *Archive) readControl(tr *tar.Reader) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading control tar header: %w", err)
		}
		if ControlFile(path.Base(th.Name)) != FileControl {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading %s: %w", FileControl, err)
		}
		if err := parseControlFile(buf.String(), &a.Metadata); err != nil {
			return fmt.Errorf("parsing control file: %w", err)
		}
	}
}

func (a *Archive) readData(tr *tar.Reader) error {
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading data tar header: %w", err)
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}
		name := strings.TrimPrefix(strings.TrimPrefix(th.Name, "./"), "/")
		if !isChangelogPath(name) {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("reading file %s: %w", th.Name, err)
		}
		a.docs["/"+name] = buf.Bytes()
	}
}

// isChangelogPath reports whether name is usr/share/doc/<dir>/<changelog>.
func isChangelogPath(name string) bool {
	rest, ok := strings.CutPrefix(name, docDir)
	if !ok {
		return false
	}
	dir, file, ok := strings.Cut(rest, "/")
	if !ok || dir == "" {
		return false
	}
	switch DocFile(file) {
	case DocChangelogDebian, DocChangelog:
		return true
	}
	return false
}

// SourcePackage returns the name of the source package the binary package
// was built from.
func (a *Archive) SourcePackage() string {
	if a.Metadata.Source != "" {
		return a.Metadata.Source
	}
	return a.Metadata.Package
}

// ChangelogPath returns the absolute path of the changelog installed by the
// package. The Debian changelog of a non-native package is preferred over the
// changelog of a native one.
func (a *Archive) ChangelogPath() (string, bool) {
	for _, f := range []DocFile{DocChangelogDebian, DocChangelog} {
		p := "/" + docDir + a.Metadata.Package + "/" + string(f)
		if _, ok := a.docs[p]; ok {
			return p, true
		}
	}
	return "", false
}

// ChangelogBytes returns the decompressed changelog of the package.
func (a *Archive) ChangelogBytes() ([]byte, error) {
	p, ok := a.ChangelogPath()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChangelog, a.Metadata.Package)
	}
	gzr, err := gzip.NewReader(bytes.NewReader(a.docs[p]))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	defer gzr.Close()
	b, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", p, err)
	}
	return b, nil
}

// Changelog parses the changelog of the package.
func (a *Archive) Changelog(opts ...changelog.Option) (*changelog.Changelog, error) {
	b, err := a.ChangelogBytes()
	if err != nil {
		return nil, err
	}
	cl, err := changelog.Parse(changelog.Bytes(b), opts...)
	if err != nil {
		p, _ := a.ChangelogPath()
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	return cl, nil
}

// CheckVersion checks that the most recent entry of cl describes this
// package: same source package name, and the version of either the binary or
// the source package.
func (a *Archive) CheckVersion(cl *changelog.Changelog) error {
	head := cl.Head()
	if head == nil {
		return fmt.Errorf("%w: changelog is empty", ErrVersionMismatch)
	}
	if head.Package() != a.SourcePackage() {
		return fmt.Errorf("%w: changelog is for %s, package is built from %s", ErrVersionMismatch, head.Package(), a.SourcePackage())
	}
	v := head.Version()
	if v.Equal(a.Metadata.Version) {
		return nil
	}
	if a.Metadata.SourceVersion != nil && v.Equal(a.Metadata.SourceVersion) {
		return nil
	}
	return fmt.Errorf("%w: changelog has version %s, control file has %s", ErrVersionMismatch, v, a.Metadata.Version)
}

// parseControlFile parses the content of a Debian control file and populates
// the Metadata struct. Unknown fields go into ExtraFields; folded values are
// kept with their line breaks.
func parseControlFile(content string, m *Metadata) error {
	var currentKey string
	var currentValue strings.Builder

	flush := func() error {
		if currentKey == "" {
			return nil
		}
		val := strings.TrimSpace(currentValue.String())
		switch ControlField(currentKey) {
		case FieldPackage:
			m.Package = val
		case FieldVersion:
			v, err := version.Parse(val)
			if err != nil {
				return fmt.Errorf("%s field: %w", FieldVersion, err)
			}
			m.Version = v
		case FieldArchitecture:
			m.Architecture = val
		case FieldMaintainer:
			m.Maintainer = val
		case FieldSource:
			name, ver, ok := strings.Cut(val, " ")
			m.Source = name
			if !ok {
				break
			}
			ver = strings.TrimSpace(ver)
			ver = strings.TrimSuffix(strings.TrimPrefix(ver, "("), ")")
			v, err := version.Parse(ver)
			if err != nil {
				return fmt.Errorf("%s field: %w", FieldSource, err)
			}
			m.SourceVersion = v
		default:
			m.ExtraFields[currentKey] = val
		}
		return nil
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			currentValue.WriteString("\n" + line)
		} else if key, value, ok := strings.Cut(line, ":"); ok {
			if err := flush(); err != nil {
				return err
			}
			currentKey = key
			currentValue.Reset()
			currentValue.WriteString(strings.TrimSpace(value))
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if m.Version == nil {
		return fmt.Errorf("missing %s field", FieldVersion)
	}
	return nil
}
