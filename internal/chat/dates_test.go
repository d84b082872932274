package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-08-28 is a Friday.
var friday = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func TestResolveDueDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"today", "2026-08-28"},
		{"tomorrow", "2026-08-29"},
		{"Tomorrow please", "2026-08-29"},
		{"next friday", "2026-09-04"},
		{"friday", "2026-09-04"},
		{"monday", "2026-08-31"},
		{"2026-09-10", "2026-09-10"},
		{"no idea yet", "no idea yet"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveDueDate(tc.in, friday), "input %q", tc.in)
	}
}

func TestNormalizeDueDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-09-10", "2026-09-10", true},
		{"tomorrow", "2026-08-29", true},
		{"10/9", "2026-09-10", true},
		{"12/5/26", "2026-05-12", true},
		{"12/5/2027", "2027-05-12", true},
		{"3rd May 2027", "2027-05-03", true},
		{"3 September", "2026-09-03", true},
		{"September 3", "2026-09-03", true},
		{"December 25th 2026", "2026-12-25", true},
		{"31 February", "", false},
		{"sometime soon", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeDueDate(tc.in, friday)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestBuildDateRejectsOverflow(t *testing.T) {
	_, ok := buildDate(2026, time.February, 31)
	assert.False(t, ok)

	got, ok := buildDate(2028, time.February, 29)
	require.True(t, ok)
	assert.Equal(t, "2028-02-29", got)
}
