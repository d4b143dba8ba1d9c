package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineDiff(t *testing.T) {
	before := "name: api\nversions:\n- r1.0.0\n"
	after := "name: api\nversions:\n- r1.1.0\n- r1.0.0\n"

	diff := LineDiff(before, after)
	require.Contains(t, diff, "+ - r1.1.0")
	require.Contains(t, diff, "  name: api")
	require.NotContains(t, diff, "- name: api")
}

func TestLineDiff_Identical(t *testing.T) {
	diff := LineDiff("a\nb\n", "a\nb\n")
	require.Equal(t, "  a\n  b\n", diff)
}
