package plusd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		// detail page spelling
		{"1987 December 19, 20:12 (Saturday)", "1987-12-19"},
		{"1975 March 5", "1975-03-05"},
		// listing spelling
		{"Sat, 19 Dec 1987", "1987-12-19"},
		{"Wed, 5 Mar 1975", "1975-03-05"},
		// already canonical, possibly buried in other text
		{"2010-11-28", "2010-11-28"},
		{"created: 2010-11-28 18:30", "2010-11-28"},
		// unparseable
		{"sometime in march", ""},
		{"1987 Frobuary 19", ""},
		{"", ""},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, NormalizeDate(test.input), "input: %q", test.input)
	}
}
