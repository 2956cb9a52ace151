package changelog

// Option configures Parse and New.
type Option func(*options)

type options struct {
	maxBlocks           int
	allowEmptyAuthor    bool
	encoding            string
	strictDistributions bool
}

func newOptions(opts []Option) *options {
	o := &options{encoding: DefaultEncoding}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMaxBlocks stops parsing after n blocks; the rest of the input is
// discarded. Zero or a negative n parses every block.
func WithMaxBlocks(n int) Option {
	return func(o *options) { o.maxBlocks = n }
}

// WithAllowEmptyAuthor accepts a bare " --" trailer line, without author nor
// date, and lets blocks without author and date be rendered that way.
func WithAllowEmptyAuthor() Option {
	return func(o *options) { o.allowEmptyAuthor = true }
}

// WithEncoding sets the encoding of byte input and output. The name is an
// IANA character set name or alias, such as "utf-8" (the default), "latin1"
// or "windows-1252".
func WithEncoding(name string) Option {
	return func(o *options) { o.encoding = name }
}

// WithStrictDistributions restricts distribution names in header lines to
// StrictDistributionChars instead of PermissiveDistributionChars.
func WithStrictDistributions() Option {
	return func(o *options) { o.strictDistributions = true }
}
