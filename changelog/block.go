package changelog

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/debchangelog/version"
)

// DateFormat is the layout of the date in a trailer line.
const DateFormat = "Mon, 02 Jan 2006 15:04:05 -0700"

// FormatDate formats t for use as a block date.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// Field is an extra key=value pair of a header line, after the urgency.
type Field struct {
	Key   string
	Value string
}

// Block is one changelog entry: a header line, verbatim change lines and a
// trailer line.
//
// Blocks are created by Parse or by Changelog.NewBlock. Setters never fail:
// missing or inconsistent fields are reported by Render, so a block can be
// completed over several calls.
type Block struct {
	pkg            string
	version        *version.Version
	distributions  []string
	urgency        string
	urgencyComment string
	metadata       []Field

	// changes is nil until the block has change data; a parsed block always
	// has a non-nil (possibly empty) slice.
	changes []string

	author string
	date   string

	// trailing holds the lines kept after the trailer: the blank separator
	// and any comment or legacy text up to the next header.
	trailing []string

	// allowEmptyAuthor permits rendering a bare " --" trailer.
	allowEmptyAuthor bool

	owner *Changelog
}

// BlockFields are the initial values of a block created with
// Changelog.NewBlock.
type BlockFields struct {
	Package        string
	Version        *version.Version
	Distributions  []string
	Urgency        string
	UrgencyComment string
	Metadata       []Field
	Author         string
	Date           string
	// Changes leaves the block without change data when nil.
	Changes []string
}

// Package returns the source package name.
func (b *Block) Package() string { return b.pkg }

// SetPackage sets the source package name.
func (b *Block) SetPackage(pkg string) { b.pkg = pkg }

// Version returns the version of the entry. The returned value is shared
// with the block: modifying it modifies the block.
func (b *Block) Version() *version.Version { return b.version }

// SetVersion sets the version of the entry.
func (b *Block) SetVersion(v *version.Version) { b.version = v }

// SetVersionString parses s and sets it as the version of the entry.
// The block is unchanged if s is not a valid version.
func (b *Block) SetVersionString(s string) error {
	v, err := version.Parse(s)
	if err != nil {
		return err
	}
	b.version = v
	return nil
}

// Distributions returns the target distributions, in header order.
func (b *Block) Distributions() []string { return slices.Clone(b.distributions) }

// SetDistributions sets the target distributions.
func (b *Block) SetDistributions(dists ...string) { b.distributions = slices.Clone(dists) }

// Urgency returns the urgency keyword, as written.
func (b *Block) Urgency() string { return b.urgency }

// SetUrgency sets the urgency keyword.
func (b *Block) SetUrgency(urgency string) { b.urgency = urgency }

// UrgencyComment returns the text following the urgency keyword, including
// its leading whitespace, e.g. " (security fix)".
func (b *Block) UrgencyComment() string { return b.urgencyComment }

// SetUrgencyComment sets the text following the urgency keyword. It is
// written verbatim, so it should start with a space.
func (b *Block) SetUrgencyComment(comment string) { b.urgencyComment = comment }

// Metadata returns the key=value pairs following the urgency, in header
// order.
func (b *Block) Metadata() []Field { return slices.Clone(b.metadata) }

// Get returns the value of the header key (matched case-insensitively).
func (b *Block) Get(key string) (string, bool) {
	if strings.EqualFold(key, "urgency") {
		return b.urgency, b.urgency != ""
	}
	for _, f := range b.metadata {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// SetMetadata sets a header key=value pair. An existing key (matched
// case-insensitively) keeps its position; a new key is added last.
// The "urgency" key sets the urgency.
func (b *Block) SetMetadata(key, value string) {
	if strings.EqualFold(key, "urgency") {
		b.urgency = value
		return
	}
	for i, f := range b.metadata {
		if strings.EqualFold(f.Key, key) {
			b.metadata[i].Value = value
			return
		}
	}
	b.metadata = append(b.metadata, Field{Key: key, Value: value})
}

// Changes returns the body lines, verbatim.
func (b *Block) Changes() []string { return slices.Clone(b.changes) }

// AddChange appends a raw line to the body.
func (b *Block) AddChange(line string) {
	if b.changes == nil {
		b.changes = []string{}
	}
	b.changes = append(b.changes, line)
}

// InsertChange adds a raw line right after the last non-blank body line, so
// that blank lines closing the body stay last.
func (b *Block) InsertChange(line string) {
	i := len(b.changes)
	for i > 0 && isBlank(b.changes[i-1]) {
		i--
	}
	if i == 0 {
		b.AddChange(line)
		return
	}
	b.changes = slices.Insert(b.changes, i, line)
}

// Author returns the maintainer of the entry ("Name <email>"), or "" if the
// trailer has none.
func (b *Block) Author() string { return b.author }

// SetAuthor sets the maintainer of the entry.
func (b *Block) SetAuthor(author string) { b.author = author }

// Date returns the date of the trailer, or "" if the trailer has none.
func (b *Block) Date() string { return b.date }

// SetDate sets the date of the trailer. See FormatDate.
func (b *Block) SetDate(date string) { b.date = date }

// TrailingLines returns the lines kept after the trailer.
func (b *Block) TrailingLines() []string { return slices.Clone(b.trailing) }

// BugsClosed returns the Debian bug numbers closed by the entry, as listed in
// "Closes: #nnn, #mmm" statements of its changes.
func (b *Block) BugsClosed() []int {
	return b.findBugs(closesRe)
}

// LaunchpadBugsClosed returns the Launchpad bug numbers closed by the
// entry, as listed in "LP: #nnn" statements of its changes.
func (b *Block) LaunchpadBugsClosed() []int {
	return b.findBugs(launchpadRe)
}

func (b *Block) findBugs(re *regexp.Regexp) []int {
	var bugs []int
	for _, line := range b.changes {
		for _, match := range re.FindAllString(line, -1) {
			for _, n := range numberRe.FindAllString(match, -1) {
				if bug, err := strconv.Atoi(n); err == nil {
					bugs = append(bugs, bug)
				}
			}
		}
	}
	return bugs
}

// header returns the header line.
func (b *Block) header() string {
	var sb strings.Builder
	sb.WriteString(b.pkg)
	sb.WriteString(" (")
	sb.WriteString(b.version.String())
	sb.WriteString(") ")
	sb.WriteString(strings.Join(b.distributions, " "))
	sb.WriteString("; urgency=")
	sb.WriteString(b.urgency)
	sb.WriteString(b.urgencyComment)
	for _, f := range b.metadata {
		sb.WriteString(", ")
		sb.WriteString(f.Key)
		sb.WriteString("=")
		sb.WriteString(f.Value)
	}
	return sb.String()
}

// trailer returns the trailer line.
func (b *Block) trailer() (string, error) {
	switch {
	case b.author != "" && b.date != "":
		return " -- " + b.author + "  " + b.date, nil
	case b.author == "" && b.date == "" && b.allowEmptyAuthor:
		return bareTrailer, nil
	case b.author == "":
		return "", createError("author not specified")
	default:
		return "", createError("date not specified")
	}
}

// validate checks that every field required to render the block is set.
func (b *Block) validate() error {
	switch {
	case b.pkg == "":
		return createError("package not specified")
	case b.version == nil:
		return createError("version not specified")
	case len(b.distributions) == 0:
		return createError("distributions not specified")
	case b.urgency == "":
		return createError("urgency not specified")
	case b.changes == nil:
		return createError("changes not specified")
	}
	return nil
}

// render appends the block text to sb.
func (b *Block) render(sb *strings.Builder) error {
	if err := b.validate(); err != nil {
		return err
	}
	trailer, err := b.trailer()
	if err != nil {
		return err
	}
	sb.WriteString(b.header())
	sb.WriteByte('\n')
	for _, line := range b.changes {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(trailer)
	sb.WriteByte('\n')
	for _, line := range b.trailing {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return nil
}

// Render returns the text of the block, including the lines kept after its
// trailer. The error wraps ErrCreate when a required field is missing.
func (b *Block) Render() (string, error) {
	var sb strings.Builder
	if err := b.render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Bytes returns the rendered block encoded with the encoding of its
// changelog.
func (b *Block) Bytes() ([]byte, error) {
	s, err := b.Render()
	if err != nil {
		return nil, err
	}
	name := DefaultEncoding
	if b.owner != nil {
		name = b.owner.encoding
	}
	return Encode(s, name)
}
