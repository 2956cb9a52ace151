package changelog

import (
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/etnz/debchangelog/version"
)

// Changelog is an ordered list of blocks, most recent first by convention.
//
// A Changelog is not safe for concurrent use.
type Changelog struct {
	// leading holds blank or comment lines found before the first block.
	leading []string
	blocks  []*Block

	encoding         string
	allowEmptyAuthor bool
}

// New returns an empty changelog. WithEncoding and WithAllowEmptyAuthor
// apply to blocks later added with NewBlock and to Bytes.
func New(opts ...Option) *Changelog {
	o := newOptions(opts)
	return &Changelog{
		encoding:         o.encoding,
		allowEmptyAuthor: o.allowEmptyAuthor,
	}
}

// Len returns the number of blocks.
func (cl *Changelog) Len() int { return len(cl.blocks) }

// Block returns the i-th block; 0 is the first block of the file.
// It panics if i is out of range.
func (cl *Changelog) Block(i int) *Block { return cl.blocks[i] }

// Blocks returns the blocks in document order.
func (cl *Changelog) Blocks() []*Block { return slices.Clone(cl.blocks) }

// All iterates over the blocks in document order.
func (cl *Changelog) All() iter.Seq2[int, *Block] { return slices.All(cl.blocks) }

// Head returns the first block, which is the most recent entry, or nil for
// an empty changelog.
func (cl *Changelog) Head() *Block {
	if len(cl.blocks) == 0 {
		return nil
	}
	return cl.blocks[0]
}

// Package returns the package name of the first block, or "".
func (cl *Changelog) Package() string {
	if h := cl.Head(); h != nil {
		return h.Package()
	}
	return ""
}

// Version returns the version of the first block, or nil.
func (cl *Changelog) Version() *version.Version {
	if h := cl.Head(); h != nil {
		return h.Version()
	}
	return nil
}

// Encoding returns the name of the encoding used by Bytes.
func (cl *Changelog) Encoding() string { return cl.encoding }

// SetEncoding changes the encoding used by Bytes.
func (cl *Changelog) SetEncoding(name string) { cl.encoding = name }

// NewBlock adds a new entry at the head of the changelog and returns it.
//
// Unless given in f, the block has no changes and no date, so rendering
// fails until they are set. The block ends with a blank line separating it
// from the next one.
func (cl *Changelog) NewBlock(f BlockFields) *Block {
	b := &Block{
		pkg:              f.Package,
		version:          f.Version,
		distributions:    slices.Clone(f.Distributions),
		urgency:          f.Urgency,
		urgencyComment:   f.UrgencyComment,
		metadata:         slices.Clone(f.Metadata),
		changes:          slices.Clone(f.Changes),
		author:           f.Author,
		date:             f.Date,
		trailing:         []string{""},
		allowEmptyAuthor: cl.allowEmptyAuthor,
		owner:            cl,
	}
	cl.blocks = slices.Insert(cl.blocks, 0, b)
	return b
}

// Render returns the text of the changelog. The error wraps ErrCreate when a
// block lacks a required field.
func (cl *Changelog) Render() (string, error) {
	var sb strings.Builder
	for _, line := range cl.leading {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	for _, b := range cl.blocks {
		if err := b.render(&sb); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// Bytes returns the rendered changelog in its encoding.
func (cl *Changelog) Bytes() ([]byte, error) {
	return cl.Encode(cl.encoding)
}

// Encode returns the rendered changelog in the named encoding.
func (cl *Changelog) Encode(name string) ([]byte, error) {
	s, err := cl.Render()
	if err != nil {
		return nil, err
	}
	return Encode(s, name)
}

// WriteTo writes the encoded changelog to w.
// This satisfies the io.WriterTo interface.
func (cl *Changelog) WriteTo(w io.Writer) (int64, error) {
	b, err := cl.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}
