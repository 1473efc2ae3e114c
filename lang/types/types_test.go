package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveVarBecomesDynamic(t *testing.T) {
	r := Resolve(Var(3))
	require.True(t, r.IsDynamic())
}

func TestResolveConcrete(t *testing.T) {
	r := Resolve(Concrete(KindInt))
	require.Equal(t, KindInt, r.Kind)
	require.False(t, r.Uncertain)
}

func TestResolveCollection(t *testing.T) {
	r := Resolve(Collection(KindVec, Concrete(KindInt)))
	require.Equal(t, KindVec, r.Kind)
	require.Equal(t, KindInt, r.Elem.Kind)
}

func TestMakeUncertain(t *testing.T) {
	r := MakeUncertain(ResolvedConcrete(KindInt))
	require.True(t, r.Uncertain)
	require.Equal(t, "Uncertain(int)", r.String())
}

func TestIsNumericAndInteger(t *testing.T) {
	require.True(t, KindInt.IsNumeric())
	require.True(t, KindFloat.IsNumeric())
	require.False(t, KindString.IsNumeric())
	require.True(t, KindU8.IsInteger())
	require.False(t, KindFloat.IsInteger())
}
