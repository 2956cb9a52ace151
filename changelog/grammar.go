package changelog

import "regexp"

// Character sets accepted in distribution names, in regular expression
// bracket syntax (matched case-insensitively).
const (
	// PermissiveDistributionChars accepts full stops, as in "stable-security.1"
	// or "jessie-backports.sloppy". It is the default.
	PermissiveDistributionChars = `-+0-9a-z.`

	// StrictDistributionChars rejects full stops in distribution names.
	StrictDistributionChars = `-+0-9a-z`
)

// bareTrailer closes a block without author nor date.
const bareTrailer = " --"

// The compiled grammar is shared by every parse and never modified.
var (
	headerPermissive = compileHeader(PermissiveDistributionChars)
	headerStrict     = compileHeader(StrictDistributionChars)

	blankRe   = regexp.MustCompile(`^\s*$`)
	trailerRe = regexp.MustCompile(`^ -- (.*) <(.*)>(  ?)((?:\w+,\s*)?\d{1,2}\s+\w+\s+\d{4}\s+\d{1,2}:\d\d:\d\d\s+[-+]\d{4}\s*)$`)

	keyValueRe = regexp.MustCompile(`(?i)^([-0-9a-z]+)=\s*(.*\S)$`)
	urgencyRe  = regexp.MustCompile(`(?i)^([-0-9a-z]+)((?:\s+.*)?)$`)

	// Lines that may appear between or after entries.
	emacsVariablesRe = regexp.MustCompile(`(?i)^(;;\s*)?Local variables:`)
	vimVariablesRe   = regexp.MustCompile(`(?i)^vim:`)
	cvsKeywordRe     = regexp.MustCompile(`^\$\w+:.*\$`)
	commentRe        = regexp.MustCompile(`^# `)
	blockCommentRe   = regexp.MustCompile(`^/\*.*\*/`)

	// Tails of very old changelogs written before the current format.
	oldFormatRes = []*regexp.Regexp{
		regexp.MustCompile(`^(\w+\s+\w+\s+\d{1,2} \d{1,2}:\d{1,2}:\d{1,2}\s+[\w\s]*\d{4})\s+(.*)\s+(<|\()(.*)(\)|>)`),
		regexp.MustCompile(`^(\w+\s+\w+\s+\d{1,2},?\s*\d{4})\s+(.*)\s+(<|\()(.*)(\)|>)`),
		regexp.MustCompile(`(?i)^([\w.+-]+)(-| )(\S+) Debian (\S+)`),
		regexp.MustCompile(`(?i)^Changes from version (.*) to (.*):`),
		regexp.MustCompile(`(?i)^Changes for [\w.+-]+-[\w.+-]+:?\s*$`),
		regexp.MustCompile(`(?i)^Old Changelog:\s*$`),
		regexp.MustCompile(`^(?:\d+:)?\w[\w.+~-]*:?\s*$`),
	}

	closesRe    = regexp.MustCompile(`(?i)closes:\s*(?:bug)?#?\s?\d+(?:,\s*(?:bug)?#?\s?\d+)*`)
	launchpadRe = regexp.MustCompile(`(?i)lp:\s+#\d+(?:,\s*#\d+)*`)
	numberRe    = regexp.MustCompile(`\d+`)
)

// compileHeader builds the header line expression:
//
//	package (version) dist1 dist2; key=value, ...
//
// Submatches are the package, the version and the distribution list; the
// key/value pairs follow the end of the match.
func compileHeader(distChars string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(\w[-+0-9a-z.]*) \(([^() \t]+)\)((?:\s+[` + distChars + `]+)+);`)
}

func isBlank(line string) bool {
	return blankRe.MatchString(line)
}

// isComment reports lines kept verbatim wherever they appear.
func isComment(line string) bool {
	return cvsKeywordRe.MatchString(line) || commentRe.MatchString(line) || blockCommentRe.MatchString(line)
}

func isEditorVariables(line string) bool {
	return emacsVariablesRe.MatchString(line) || vimVariablesRe.MatchString(line)
}

func isOldFormat(line string) bool {
	for _, re := range oldFormatRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
