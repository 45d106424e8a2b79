package property

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colbat/batjoin/table"
)

func newOutput(t *testing.T) *table.Table {
	t.Helper()
	return table.New(0, 0, 0)
}

func TestDeriveHeadInheritsWhenRightUnique(t *testing.T) {
	out := newOutput(t)
	mustRederive := Derive(out, Input{
		Left:                 table.Flags{Sorted: true, Key: true, Nonil: true},
		Right:                table.Flags{},
		RightHeadUnique:      true,
		EveryLeftContributes: true,
	})
	require.False(t, mustRederive)
	require.True(t, out.HeadFlags.Sorted)
	require.True(t, out.HeadFlags.Key)
}

func TestDeriveHeadWeakensWhenRightNotUnique(t *testing.T) {
	out := newOutput(t)
	Derive(out, Input{
		Left:            table.Flags{Sorted: true, Key: true, Nonil: true},
		RightHeadUnique: false,
	})
	require.True(t, out.HeadFlags.Sorted)
	require.False(t, out.HeadFlags.Key)
}

func TestDeriveTailOrderOnlyWhenLeftTailUniqueAndSortedAndRightHitOnce(t *testing.T) {
	out := newOutput(t)
	Derive(out, Input{
		Right:                    table.Flags{Sorted: true, RevSorted: false},
		LeftTailUniqueAndSorted:  true,
		EveryRightHitExactlyOnce: true,
	})
	require.True(t, out.TailFlags.Sorted)

	out2 := newOutput(t)
	Derive(out2, Input{
		Right:                   table.Flags{Sorted: true},
		LeftTailUniqueAndSorted: false,
	})
	require.False(t, out2.TailFlags.Sorted)
}

func TestDeriveTailKeyRequiresBothKeyOnJoinSide(t *testing.T) {
	out := newOutput(t)
	Derive(out, Input{BothKeyOnJoinSide: true})
	require.True(t, out.TailFlags.Key)
}

func TestDeriveTailNonilFalseWhenInjectsNils(t *testing.T) {
	out := newOutput(t)
	Derive(out, Input{
		Right:       table.Flags{Nonil: true},
		InjectsNils: true,
	})
	require.False(t, out.TailFlags.Nonil)
}

func TestDeriveReportsMustRederiveForStringTrickOrVoidTail(t *testing.T) {
	out := newOutput(t)
	require.True(t, Derive(out, Input{StringTrick: true}))

	out2 := newOutput(t)
	require.True(t, Derive(out2, Input{RightTailVoid: true}))

	out3 := newOutput(t)
	require.False(t, Derive(out3, Input{}))
}

func TestKeyBothSides(t *testing.T) {
	require.True(t, KeyBothSides(table.Flags{Key: true}, table.Flags{Key: true}))
	require.False(t, KeyBothSides(table.Flags{Key: true}, table.Flags{Key: false}))
}
