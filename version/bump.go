package version

import "strconv"

// Bump returns a new version whose debian revision is incremented, so that it
// sorts strictly after v. Epoch and upstream version are kept.
//
// Strategy:
//  1. If there is no revision, "-1" is appended ("1.0" -> "1.0-1").
//  2. If the revision is purely numeric, it is incremented ("1.0-9" -> "1.0-10").
//  3. Otherwise the last alphanumeric character of the revision is bumped in
//     the range 0-9, a-z ("1.0-1ubuntu1" -> "1.0-1ubuntu2", "1.0-1.9" -> "1.0-1.a").
//     A 'z' gets an 'a' appended after it ("1.0-1z" -> "1.0-1za").
//     A revision without any alphanumeric character gets a "1" appended.
func Bump(v *Version) *Version {
	n := v.Clone()
	// The revision alphabet is closed under these edits, so they cannot fail.
	_ = n.SetDebianRevision(bumpRevision(v.revision))
	return n
}

func bumpRevision(rev string) string {
	if rev == "" {
		return "1"
	}
	if isDigits(rev) {
		if i, err := strconv.Atoi(rev); err == nil {
			return strconv.Itoa(i + 1)
		}
	}

	b := []byte(rev)
	for i := len(b) - 1; i >= 0; i-- {
		c := b[i]
		switch {
		case c >= '0' && c < '9':
			b[i]++
			return string(b)
		case c == '9':
			b[i] = 'a'
			return string(b)
		case c >= 'a' && c < 'z':
			b[i]++
			return string(b)
		case c == 'z':
			return string(b[:i+1]) + "a" + string(b[i+1:])
		}
	}
	return rev + "1"
}
