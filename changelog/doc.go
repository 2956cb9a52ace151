// Package changelog reads, edits and writes Debian changelog files
// (debian/changelog).
//
// # Design Philosophy
//
// A changelog is parsed into an ordered list of blocks, one per entry. Each
// block keeps its header and trailer as structured fields and its body as
// verbatim lines, so rendering an unmodified changelog reproduces the input
// byte for byte. Blocks can be edited in place and new entries added at the
// head, and the document rendered back under any text encoding.
//
// The package works in memory on strings, byte slices and io.Reader/io.Writer
// streams; it never touches the file system.
//
// # Format
//
//	package (version) distribution(s); urgency=urgency[, key=value]
//
//	  * change details
//	    more change details
//
//	 -- maintainer name <email address>  date
//
// Reference: https://www.debian.org/doc/debian-policy/ch-source.html#debian-changelog-debian-changelog
package changelog
