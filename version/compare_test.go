package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"0.9~rc1", "0.9", -1},
		{"0.9~rc1-1", "0.9-1", -1},
		{"1.0~~", "1.0~", -1},
		{"1.0~", "1.0~a", -1},
		{"1.0", "1.0a", -1},
		{"1.0", "1.0.1", -1},
		{"1.2", "1.10", -1},
		{"1.01", "1.1", 0},
		{"1.0", "1.00", 0},
		{"1:0.1", "2.0", 1},
		{"0:1.0", "1.0", 0},
		{"1.0-0", "1.0", 0},
		{"1.0-1", "1.0", 1},
		{"7.0-035+1", "7.0-35+1", 0},
		{"7.0-035+1", "7.0-36", -1},
		{"7.0-035+1", "7.0-35", 1},
		{"1.0-1", "1.0-1ubuntu1", -1},
		{"2.30-1", "2.4-1", 1},
		{"1.0+", "1.0a", -1},
		{"10:1.0", "9:9.9", 1},
		{"99999999999999999999999-1", "99999999999999999999998-1", 1},
		{"1.0-1.a", "1.0-1.9", 1},
	}

	for _, tt := range tests {
		a, b := MustParse(tt.a), MustParse(tt.b)
		assert.Equal(t, tt.want, Compare(a, b), "Compare(%q, %q)", tt.a, tt.b)
		assert.Equal(t, -tt.want, Compare(b, a), "Compare(%q, %q)", tt.b, tt.a)
	}
}

func TestEqualAndLess(t *testing.T) {
	assert.True(t, MustParse("1.0").Equal(MustParse("0:1.0-0")))
	assert.False(t, MustParse("1.0").Equal(MustParse("1.0-1")))
	assert.True(t, MustParse("0.9~rc1").Less(MustParse("0.9")))
	assert.False(t, MustParse("0.9").Less(MustParse("0.9~rc1")))
	assert.Equal(t, 1, MustParse("1:1.0").Compare(MustParse("1.0")))
}

func TestSort(t *testing.T) {
	in := []string{"1.0-2", "1:0.1", "1.0~rc1-1", "1.0-1", "0.9", "1.0-10"}
	want := []string{"0.9", "1.0~rc1-1", "1.0-1", "1.0-2", "1.0-10", "1:0.1"}

	var vs []*Version
	for _, s := range in {
		vs = append(vs, MustParse(s))
	}
	Sort(vs)

	var got []string
	for _, v := range vs {
		got = append(got, v.String())
	}
	assert.Equal(t, want, got)
}

func TestMax(t *testing.T) {
	assert.Nil(t, Max())
	assert.Equal(t, "1:0.1", Max(MustParse("2.0"), MustParse("1:0.1"), MustParse("1.0")).String())
}
