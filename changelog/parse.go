package changelog

import (
	"regexp"
	"strings"

	"github.com/etnz/debchangelog/version"
)

// parseState is what the parser expects on the next line.
type parseState int

const (
	stateFirstHeading parseState = iota
	stateNextHeadingOrEOF
	stateStartOfChanges
	stateMoreChangesOrTrailer
	stateSlurpToEnd
)

func (s parseState) String() string {
	switch s {
	case stateFirstHeading:
		return "first heading"
	case stateNextHeadingOrEOF:
		return "next heading or end of file"
	case stateStartOfChanges:
		return "start of change data"
	case stateMoreChangesOrTrailer:
		return "more change data or trailer"
	case stateSlurpToEnd:
		return "end of file"
	}
	return "unknown state"
}

// Parse reads a changelog from src.
//
// The whole input must be well formed: any malformed header, body or trailer
// line fails the parse with a *ParseError matching ErrParse. Decoding errors
// match ErrEncoding.
func Parse(src Source, opts ...Option) (*Changelog, error) {
	o := newOptions(opts)
	c, err := lookupCodec(o.encoding)
	if err != nil {
		return nil, err
	}
	lines, err := src.lines(c)
	if err != nil {
		return nil, err
	}

	cl := &Changelog{encoding: o.encoding, allowEmptyAuthor: o.allowEmptyAuthor}
	p := &parser{cl: cl, opts: o, header: headerPermissive}
	if o.strictDistributions {
		p.header = headerStrict
	}
	if err := p.run(lines); err != nil {
		return nil, err
	}
	return cl, nil
}

// ParseString is a shorthand for Parse(String(s), opts...).
func ParseString(s string, opts ...Option) (*Changelog, error) {
	return Parse(String(s), opts...)
}

type parser struct {
	cl     *Changelog
	opts   *options
	header *regexp.Regexp

	state   parseState
	current *Block

	lineNo int
	line   string
}

func (p *parser) fail(reason string, cause error) error {
	return &ParseError{Line: p.lineNo, Text: p.line, Reason: reason, Err: cause}
}

func (p *parser) last() *Block {
	return p.cl.blocks[len(p.cl.blocks)-1]
}

// keep stores a line found outside of any block.
func (p *parser) keep(line string) {
	if len(p.cl.blocks) == 0 {
		p.cl.leading = append(p.cl.leading, line)
		return
	}
	b := p.last()
	b.trailing = append(b.trailing, line)
}

func (p *parser) run(lines []string) error {
	p.state = stateFirstHeading
	for i, line := range lines {
		p.lineNo, p.line = i+1, line
		var (
			done bool
			err  error
		)
		switch p.state {
		case stateFirstHeading, stateNextHeadingOrEOF:
			done, err = p.heading(line)
		case stateStartOfChanges, stateMoreChangesOrTrailer:
			err = p.changes(line)
		case stateSlurpToEnd:
			p.keep(line)
		}
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	switch p.state {
	case stateNextHeadingOrEOF, stateSlurpToEnd:
		return nil
	case stateFirstHeading:
		p.lineNo, p.line = 0, ""
		return p.fail("empty changelog", nil)
	}
	p.lineNo, p.line = 0, ""
	return p.fail("found end of file while looking for "+p.state.String(), nil)
}

// heading handles a line outside of any block. It reports done when the
// block limit is reached.
func (p *parser) heading(line string) (done bool, err error) {
	if m := p.header.FindStringSubmatchIndex(line); m != nil {
		if p.opts.maxBlocks > 0 && len(p.cl.blocks) >= p.opts.maxBlocks {
			return true, nil
		}
		b, err := p.parseHeader(line, m)
		if err != nil {
			return false, err
		}
		p.current = b
		p.state = stateStartOfChanges
		return false, nil
	}

	switch {
	case isBlank(line):
		p.keep(line)
	case isComment(line):
		p.keep(line)
	case p.state == stateNextHeadingOrEOF && (isEditorVariables(line) || isOldFormat(line)):
		// The rest of the file is not in the current format.
		p.keep(line)
		p.state = stateSlurpToEnd
	default:
		return false, p.fail("unexpected line while looking for "+p.state.String(), nil)
	}
	return false, nil
}

// parseHeader builds a block from a header line; m holds the submatch
// indexes of the header expression.
func (p *parser) parseHeader(line string, m []int) (*Block, error) {
	b := &Block{
		pkg:              line[m[2]:m[3]],
		distributions:    strings.Fields(line[m[6]:m[7]]),
		changes:          []string{},
		allowEmptyAuthor: p.opts.allowEmptyAuthor,
		owner:            p.cl,
	}

	v, err := version.Parse(line[m[4]:m[5]])
	if err != nil {
		return nil, p.fail("invalid version in header", err)
	}
	b.version = v

	seen := make(map[string]bool)
	for _, pair := range strings.Split(line[m[1]:], ",") {
		pair = strings.TrimSpace(pair)
		kv := keyValueRe.FindStringSubmatch(pair)
		if kv == nil {
			return nil, p.fail("invalid key-value pair after ';': "+pair, nil)
		}
		key, value := kv[1], kv[2]
		lower := strings.ToLower(key)
		if seen[lower] {
			return nil, p.fail("repeated key-value: "+lower, nil)
		}
		seen[lower] = true

		if lower != "urgency" {
			b.metadata = append(b.metadata, Field{Key: key, Value: value})
			continue
		}
		u := urgencyRe.FindStringSubmatch(value)
		if u == nil {
			return nil, p.fail("badly formatted urgency value: "+value, nil)
		}
		b.urgency, b.urgencyComment = u[1], u[2]
	}
	if b.urgency == "" {
		return nil, p.fail("missing urgency", nil)
	}
	return b, nil
}

// changes handles a line inside a block, after its header.
func (p *parser) changes(line string) error {
	if m := trailerRe.FindStringSubmatch(line); m != nil {
		if m[3] != "  " {
			return p.fail("badly formatted trailer line: expected two spaces before the date", nil)
		}
		p.current.author = m[1] + " <" + m[2] + ">"
		p.current.date = m[4]
		p.closeBlock()
		return nil
	}
	if line == bareTrailer {
		if !p.opts.allowEmptyAuthor {
			return p.fail("trailer line without author and date", nil)
		}
		p.closeBlock()
		return nil
	}

	switch {
	case strings.HasPrefix(line, bareTrailer+" "):
		return p.fail("badly formatted trailer line", nil)
	case p.header.MatchString(line):
		return p.fail("header line while looking for "+p.state.String(), nil)
	}
	p.current.changes = append(p.current.changes, line)
	if !isBlank(line) && !isComment(line) {
		p.state = stateMoreChangesOrTrailer
	}
	return nil
}

func (p *parser) closeBlock() {
	p.cl.blocks = append(p.cl.blocks, p.current)
	p.current = nil
	p.state = stateNextHeadingOrEOF
}
