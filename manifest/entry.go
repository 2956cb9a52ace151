// Package manifest adds changelog entries described by declarative YAML or
// JSON files.
//
// An entry file lists the changes of a new release and, optionally, its
// header fields. Every string is a text/template executed with the entry's
// defines and the fields of the current head block:
//
//	defines:
//	  upstream: "2.11"
//	version: "{{.upstream}}-1"
//	distributions: [unstable]
//	changes:
//	  - New upstream release {{.upstream}}.
//	  - "Drop patch fixing #1234, applied upstream."
//
// Missing fields default from the changelog itself (package name, bumped
// version) and from Defaults (maintainer, distribution, urgency, date).
package manifest

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/etnz/debchangelog/changelog"
	"github.com/etnz/debchangelog/version"
)

var (
	// ErrIncomplete is returned when a required field has no value and no
	// default.
	ErrIncomplete = errors.New("incomplete entry")

	// ErrVersionNotNewer is returned when the new version does not sort
	// after the version of the current head block.
	ErrVersionNotNewer = errors.New("version is not newer than the previous entry")
)

// Entry is the definition of a new changelog block, loaded from a file.
type Entry struct {
	// Defines is a map of variables available to templates.
	Defines map[string]string `json:"defines" yaml:"defines"`
	// Package is the source package name. Defaults to the current one.
	Package string `json:"package" yaml:"package"`
	// Version is the version of the new entry. Defaults to the current
	// version with its Debian revision bumped.
	Version string `json:"version" yaml:"version"`
	// Distributions are the target distributions.
	Distributions []string `json:"distributions" yaml:"distributions"`
	// Urgency is the upload urgency, e.g. "low" or "medium".
	Urgency string `json:"urgency" yaml:"urgency"`
	// UrgencyComment is written right after the urgency.
	UrgencyComment string `json:"urgency_comment" yaml:"urgency_comment"`
	// Metadata holds extra header key=value pairs, written in key order.
	Metadata map[string]string `json:"metadata" yaml:"metadata"`
	// Author is the "Name <email>" of the maintainer signing the entry.
	Author string `json:"author" yaml:"author"`
	// Date is the trailer date. Defaults to the current time.
	Date string `json:"date" yaml:"date"`
	// Changes are the items of the entry, each rendered as a "  * " bullet.
	Changes []string `json:"changes" yaml:"changes"`
	// ChangesFile is the path or URL of a file whose lines are appended
	// verbatim after Changes.
	ChangesFile string `json:"changes_file" yaml:"changes_file"`
	// Raw disables templating of the changes file.
	Raw bool `json:"raw" yaml:"raw"`
	// AllowLowerVersion accepts a version that does not sort after the
	// current one.
	AllowLowerVersion bool `json:"allow_lower_version" yaml:"allow_lower_version"`

	filePath string
}

// Defaults provide the values of fields an entry leaves empty.
type Defaults struct {
	Now          time.Time
	Maintainer   string
	Distribution string
	Urgency      string
}

// Load loads and parses an Entry from the specified file path.
// It supports both JSON and YAML formats based on the file extension.
func Load(path string, l Listener) (*Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry file: %w", err)
	}
	e, err := Decode(path, content)
	if err != nil {
		return nil, err
	}
	if l != nil {
		l(EventEntryLoadSuccess{Path: path})
	}
	return e, nil
}

// Decode parses an Entry from data. The format is chosen from the
// extension of path, which also anchors relative resource paths.
func Decode(path string, data []byte) (*Entry, error) {
	var e Entry
	if err := unmarshal(path, data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse entry file %s: %w", path, err)
	}
	e.filePath = path
	return &e, nil
}

// unmarshal parses JSON or YAML based on file extension.
func unmarshal(path string, data []byte, v any) error {
	ext := strings.ToLower(filepath.Ext(path))
	r := bytes.NewReader(data)
	if ext == ".yaml" || ext == ".yml" {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		return dec.Decode(v)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (e *Entry) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(e.filePath), path)
}

func (e *Entry) loadResource(engine *templateEngine, path string, raw bool) (string, error) {
	var content []byte
	var err error

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return "", fmt.Errorf("failed to fetch resource %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to fetch resource %s: %s", path, resp.Status)
		}

		content, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read resource body %s: %w", path, err)
		}
	} else {
		resolved := e.resolve(path)
		content, err = os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("reading resource %s: %w", resolved, err)
		}
	}

	if raw {
		return string(content), nil
	}
	return engine.render(path, string(content))
}

// builtins returns the template variables describing the current head block.
func builtins(head *changelog.Block, d Defaults) map[string]string {
	vars := map[string]string{
		"date":       changelog.FormatDate(d.Now),
		"maintainer": d.Maintainer,
	}
	if head == nil {
		return vars
	}
	vars["package"] = head.Package()
	if v := head.Version(); v != nil {
		vars["previous_version"] = v.String()
		vars["epoch"] = v.Epoch()
		vars["upstream"] = v.UpstreamVersion()
		vars["revision"] = v.DebianRevision()
		vars["bumped_version"] = version.Bump(v).String()
	}
	return vars
}

// Apply renders the entry and adds it as the new head block of cl.
func (e *Entry) Apply(cl *changelog.Changelog, d Defaults, l Listener) (*changelog.Block, error) {
	if l == nil {
		l = func(fmt.Stringer) {}
	}
	if d.Now.IsZero() {
		d.Now = time.Now()
	}
	head := cl.Head()
	engine := newTemplateEngine(builtins(head, d)).sub(e.Defines)

	// field renders a template, falling back to def when the result is
	// empty.
	field := func(name, text, def string) (string, error) {
		s, err := engine.render(name, text)
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", name, err)
		}
		s = strings.TrimSpace(s)
		if s == "" && def != "" {
			l(EventFieldDefaulted{Field: name, Value: def})
			return def, nil
		}
		return s, nil
	}

	f := changelog.BlockFields{}
	var err error

	if f.Package, err = field("package", e.Package, cl.Package()); err != nil {
		return nil, err
	}
	if f.Package == "" {
		return nil, fmt.Errorf("%w: package not specified", ErrIncomplete)
	}

	if f.Version, err = e.version(field, head); err != nil {
		return nil, err
	}

	for i, dist := range e.Distributions {
		s, err := field(fmt.Sprintf("distributions[%d]", i), dist, "")
		if err != nil {
			return nil, err
		}
		f.Distributions = append(f.Distributions, strings.Fields(s)...)
	}
	if len(f.Distributions) == 0 {
		dist := cmp.Or(d.Distribution, "UNRELEASED")
		l(EventFieldDefaulted{Field: "distributions", Value: dist})
		f.Distributions = []string{dist}
	}

	if f.Urgency, err = field("urgency", e.Urgency, cmp.Or(d.Urgency, "medium")); err != nil {
		return nil, err
	}
	if f.UrgencyComment, err = engine.render("urgency_comment", e.UrgencyComment); err != nil {
		return nil, fmt.Errorf("rendering urgency_comment: %w", err)
	}
	if f.UrgencyComment != "" && !strings.HasPrefix(f.UrgencyComment, " ") {
		f.UrgencyComment = " " + f.UrgencyComment
	}

	keys := slices.Sorted(maps.Keys(e.Metadata))
	for _, k := range keys {
		v, err := field("metadata."+k, e.Metadata[k], "")
		if err != nil {
			return nil, err
		}
		f.Metadata = append(f.Metadata, changelog.Field{Key: k, Value: v})
	}

	if f.Author, err = field("author", e.Author, d.Maintainer); err != nil {
		return nil, err
	}
	if f.Author == "" {
		return nil, fmt.Errorf("%w: author not specified", ErrIncomplete)
	}
	if f.Date, err = field("date", e.Date, changelog.FormatDate(d.Now)); err != nil {
		return nil, err
	}

	if f.Changes, err = e.changes(engine); err != nil {
		return nil, err
	}

	b := cl.NewBlock(f)
	l(EventBlockAdded{
		FilePath:      e.filePath,
		Package:       f.Package,
		Version:       f.Version.String(),
		Distributions: f.Distributions,
		Lines:         len(f.Changes),
	})
	return b, nil
}

// version returns the version of the new entry, checking it sorts after
// the one of head.
func (e *Entry) version(field func(name, text, def string) (string, error), head *changelog.Block) (*version.Version, error) {
	var def string
	if head != nil && head.Version() != nil {
		def = version.Bump(head.Version()).String()
	}
	s, err := field("version", e.Version, def)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, fmt.Errorf("%w: version not specified", ErrIncomplete)
	}
	v, err := version.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parsing version: %w", err)
	}
	if head != nil && head.Version() != nil && !e.AllowLowerVersion && !head.Version().Less(v) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrVersionNotNewer, v, head.Version())
	}
	return v, nil
}

// changes returns the body lines: a blank line, the bullets, the lines of
// the changes file, and a closing blank line.
func (e *Entry) changes(engine *templateEngine) ([]string, error) {
	lines := []string{""}
	for i, c := range e.Changes {
		s, err := engine.render(fmt.Sprintf("changes[%d]", i), c)
		if err != nil {
			return nil, fmt.Errorf("rendering changes[%d]: %w", i, err)
		}
		lines = append(lines, bullet(s)...)
	}
	if e.ChangesFile != "" {
		src, err := engine.render("changes_file", e.ChangesFile)
		if err != nil {
			return nil, fmt.Errorf("rendering changes_file: %w", err)
		}
		content, err := e.loadResource(engine, src, e.Raw)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
			lines = append(lines, strings.TrimRight(line, " \t"))
		}
	}
	if len(lines) == 1 {
		return nil, fmt.Errorf("%w: no changes", ErrIncomplete)
	}
	return append(lines, ""), nil
}

// bullet formats a change item. Continuation lines are indented under the
// bullet text; an item already indented is kept as is.
func bullet(item string) []string {
	item = strings.TrimRight(item, "\n")
	if strings.HasPrefix(item, "  ") {
		return strings.Split(item, "\n")
	}
	var out []string
	for i, line := range strings.Split(item, "\n") {
		line = strings.TrimSpace(line)
		if i == 0 {
			out = append(out, "  * "+line)
			continue
		}
		out = append(out, "    "+line)
	}
	return out
}
