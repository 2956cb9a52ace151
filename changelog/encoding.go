package changelog

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the encoding used when none is requested.
const DefaultEncoding = "utf-8"

// codec converts between text and bytes for one named encoding.
// UTF-8 is handled natively and strictly: invalid input is an error rather
// than being replaced with U+FFFD.
type codec struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// lookupCodec resolves an encoding by IANA name or alias ("utf-8",
// "latin1", "ISO-8859-15", "windows-1252", ...). Matching is case-insensitive.
func lookupCodec(name string) (*codec, error) {
	if name == "" || strings.EqualFold(name, "utf8") {
		return &codec{name: DefaultEncoding}, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrEncoding, name)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrEncoding, name)
	}
	if enc == unicode.UTF8 {
		return &codec{name: name}, nil
	}
	return &codec{name: name, enc: enc}, nil
}

// reader returns a reader producing UTF-8 text from r.
func (c *codec) reader(r io.Reader) io.Reader {
	if c.enc == nil {
		return r
	}
	return transform.NewReader(r, c.enc.NewDecoder())
}

// check validates one decoded line.
func (c *codec) check(line string) error {
	if c.enc == nil && !utf8.ValidString(line) {
		return fmt.Errorf("%w: invalid %s text", ErrEncoding, c.name)
	}
	return nil
}

// encode converts text to bytes in the codec's encoding.
func (c *codec) encode(s string) ([]byte, error) {
	if c.enc == nil {
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: text is not valid %s", ErrEncoding, c.name)
		}
		return []byte(s), nil
	}
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot encode text as %s: %v", ErrEncoding, c.name, err)
	}
	return b, nil
}

// Encode renders text in the named encoding.
func Encode(text, name string) ([]byte, error) {
	c, err := lookupCodec(name)
	if err != nil {
		return nil, err
	}
	return c.encode(text)
}

// Decode converts bytes in the named encoding to text.
func Decode(b []byte, name string) (string, error) {
	c, err := lookupCodec(name)
	if err != nil {
		return "", err
	}
	if c.enc == nil {
		if err := c.check(string(b)); err != nil {
			return "", err
		}
		return string(b), nil
	}
	s, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: cannot decode %s text: %v", ErrEncoding, c.name, err)
	}
	return string(s), nil
}
