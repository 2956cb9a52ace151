package version

import (
	"slices"
	"strings"
)

// Compare returns -1 if a sorts before b, 0 if they are equal and +1 if a
// sorts after b.
//
// Epochs are compared numerically (absent means 0), then upstream versions
// and finally debian revisions (absent means "0") are compared with the
// segment algorithm: alternating runs of non-digits, compared byte by byte
// with '~' sorting before the end of the string, and runs of digits,
// compared numerically.
func Compare(a, b *Version) int {
	if c := compareNumeric(a.epoch, b.epoch); c != 0 {
		return c
	}
	if c := compareSegments(a.upstream, b.upstream); c != 0 {
		return c
	}
	return compareSegments(revisionOrZero(a.revision), revisionOrZero(b.revision))
}

// Compare compares v with o, see Compare.
func (v *Version) Compare(o *Version) int {
	return Compare(v, o)
}

// Equal reports whether v and o are the same version for ordering purposes.
// "1.0" and "1.00" are equal even though they render differently.
func (v *Version) Equal(o *Version) bool {
	return Compare(v, o) == 0
}

// Less reports whether v sorts before o.
func (v *Version) Less(o *Version) bool {
	return Compare(v, o) < 0
}

// Sort sorts versions in ascending order. Equal versions keep their relative
// order.
func Sort(versions []*Version) {
	slices.SortStableFunc(versions, Compare)
}

// Max returns the highest of the given versions, or nil if there are none.
func Max(versions ...*Version) *Version {
	var max *Version
	for _, v := range versions {
		if max == nil || Compare(v, max) > 0 {
			max = v
		}
	}
	return max
}

func revisionOrZero(r string) string {
	if r == "" {
		return "0"
	}
	return r
}

// compareSegments implements the alternating non-digit / digit comparison.
func compareSegments(a, b string) int {
	for a != "" || b != "" {
		var na, nb string
		na, a = splitRun(a, false)
		nb, b = splitRun(b, false)
		if c := compareLexical(na, nb); c != 0 {
			return c
		}
		var da, db string
		da, a = splitRun(a, true)
		db, b = splitRun(b, true)
		if c := compareNumeric(da, db); c != 0 {
			return c
		}
	}
	return 0
}

// splitRun returns the maximal leading run of digits (or non-digits) of s
// and the remainder.
func splitRun(s string, digits bool) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

// order gives the sort weight of the byte at position i of s. The end of the
// string weighs 0, '~' weighs less and every other byte more.
func order(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	if s[i] == '~' {
		return -1
	}
	return int(s[i]) + 1
}

func compareLexical(a, b string) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		oa, ob := order(a, i), order(b, i)
		if oa != ob {
			return sign(oa - ob)
		}
	}
	return 0
}

// compareNumeric compares two runs of ASCII digits by value. An empty run is
// zero. Runs are never converted to integers so arbitrarily long numbers do
// not overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
