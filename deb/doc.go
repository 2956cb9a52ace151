// Package deb reads the changelog shipped inside a Debian binary package.
//
// A .deb file is an ar archive holding a control tar archive and a data tar
// archive. The control file gives the package name and version; the data
// archive installs the changelog, gzip-compressed, as
// /usr/share/doc/<package>/changelog.Debian.gz (or changelog.gz for a native
// package).
//
// The package works in memory from any io.Reader, without calling dpkg.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html
package deb
