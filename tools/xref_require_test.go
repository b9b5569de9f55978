package tools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrossReferenceSortedByAddress(t *testing.T) {
	src := `.text
_start:
	jal x1, helper
	ecall
helper:
	addi x5, x0, 1
	jalr x0, x1, 0
`
	xref, err := BuildCrossReference(src)
	require.NoError(t, err)
	require.Contains(t, xref.Symbols, "_start")
	require.Contains(t, xref.Symbols, "helper")

	names := xref.sortedNames()
	require.Equal(t, []string{"_start", "helper"}, names)
	require.Less(t, xref.Symbols["_start"].Address, xref.Symbols["helper"].Address)
}
