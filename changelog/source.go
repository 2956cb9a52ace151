package changelog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Source is the input of Parse. Whatever its shape, a Source is normalized
// into a sequence of lines without their terminators before parsing.
//
// Use String, Lines, Bytes or Reader to build one.
type Source interface {
	lines(c *codec) ([]string, error)
}

// String is changelog text that is already decoded.
type String string

func (s String) lines(*codec) ([]string, error) {
	return scanLines(strings.NewReader(string(s)), nil)
}

// Lines is changelog text already split into lines. A single trailing "\n"
// on an element is ignored, so lines read with their terminators work too.
type Lines []string

func (l Lines) lines(*codec) ([]string, error) {
	out := make([]string, len(l))
	for i, line := range l {
		out[i] = strings.TrimSuffix(line, "\n")
	}
	return out, nil
}

// Bytes is encoded changelog text, decoded with the encoding given to Parse.
type Bytes []byte

func (b Bytes) lines(c *codec) ([]string, error) {
	return scanLines(bytes.NewReader(b), c)
}

type readerSource struct {
	r io.Reader
}

// Reader returns a Source reading encoded changelog text from r until EOF.
// The text is decoded while streaming with the encoding given to Parse.
func Reader(r io.Reader) Source {
	return readerSource{r: r}
}

func (s readerSource) lines(c *codec) ([]string, error) {
	return scanLines(s.r, c)
}

// scanLines splits r into lines. A "\r" before the "\n" is dropped and a
// last line without terminator is kept. When c is not nil, r is decoded with
// it and every line is checked.
func scanLines(r io.Reader, c *codec) ([]string, error) {
	if c != nil {
		r = c.reader(r)
	}
	br := bufio.NewReader(r)

	var lines []string
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading changelog: %w", err)
		}
		if line == "" && err == io.EOF {
			return lines, nil
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if c != nil {
			if err := c.check(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", len(lines)+1, err)
			}
		}
		lines = append(lines, line)
		if err == io.EOF {
			return lines, nil
		}
	}
}
