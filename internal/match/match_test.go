package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches_IdenticalAlwaysMatch(t *testing.T) {
	for _, s := range []string{"", "inception", "интерстеллар", "the lord of the rings"} {
		for threshold := 1; threshold <= 5; threshold++ {
			assert.Truef(t, Matches(s, s, threshold), "s=%q threshold=%d", s, threshold)
		}
	}
}

func TestMatches_StrictlyBelowThreshold(t *testing.T) {
	cases := []struct {
		a, b string
		dist int
	}{
		{"incepton", "inception", 1},
		{"kitten", "sitting", 3},
		{"матрица", "матрицa", 1}, // 最后一个是拉丁字母 a
		{"ökko", "okko", 1},
		{"", "abc", 3},
	}
	for _, c := range cases {
		assert.Equalf(t, c.dist, Distance(c.a, c.b), "%q vs %q", c.a, c.b)
		for threshold := 0; threshold <= 5; threshold++ {
			assert.Equalf(t, c.dist < threshold, Matches(c.a, c.b, threshold), "%q vs %q threshold=%d", c.a, c.b, threshold)
		}
	}
}

func TestMatches_UnrelatedTitle(t *testing.T) {
	assert.False(t, Matches("completely unrelated title", "inception", DefaultThreshold))
	assert.True(t, Matches("incepton", "inception", DefaultThreshold))
}

func TestBest(t *testing.T) {
	d, ok := Best("matrix", "", "the matrix", "matrlx")
	assert.True(t, ok)
	assert.Equal(t, 1, d)

	_, ok = Best("matrix", "", "")
	assert.False(t, ok)
}
