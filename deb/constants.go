package deb

// ControlField represents a field of a binary package control file that the
// archive reader keeps.
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldArchitecture ControlField = "Architecture"
	FieldMaintainer   ControlField = "Maintainer"
	FieldSource       ControlField = "Source"
)

// ControlFile represents a standard file found in the control archive.
type ControlFile string

const (
	FileControl ControlFile = "control"
)

// PackageFile represents a standard member of the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTar   PackageFile = "control.tar"
	PkgDataTar      PackageFile = "data.tar"
)

// DocFile represents a changelog installed in /usr/share/doc/<package>/.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-docs.html#changelog-files-and-release-notes
type DocFile string

const (
	// DocChangelogDebian is the Debian changelog of a non-native package.
	DocChangelogDebian DocFile = "changelog.Debian.gz"
	// DocChangelog is the changelog of a native package (or the upstream one).
	DocChangelog DocFile = "changelog.gz"
)

// docDir is the directory holding package documentation in data.tar.
const docDir = "usr/share/doc/"
