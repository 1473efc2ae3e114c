package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

func TestCapabilitiesAllows(t *testing.T) {
	none := Capabilities{}
	require.False(t, none.Allows(CapFS))
	require.True(t, none.Allows(""))

	fsOnly := Capabilities{Fs: true}
	require.True(t, fsOnly.Allows(CapFS))
	require.False(t, fsOnly.Allows(CapNet))

	trusted := Capabilities{Trusted: true}
	require.True(t, trusted.Allows(CapNet))
	require.True(t, trusted.Allows(CapExec))
}

func TestRegistryResolveDeniesWithoutCapability(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("fs", Capabilities{})
	require.Error(t, err)

	res, err := r.Resolve("fs", Capabilities{Fs: true})
	require.NoError(t, err)
	require.Equal(t, "fs", res.Module.Name)
}

func TestRegistryResolveUnrestrictedModuleAlwaysAllowed(t *testing.T) {
	r := NewRegistry()
	res, err := r.Resolve("io", Capabilities{})
	require.NoError(t, err)
	require.NotEmpty(t, res.QualifiedNatives())
	require.Contains(t, res.QualifiedNatives(), "io::println")
}

func TestInstallBindsNativesUnderQualifiedName(t *testing.T) {
	r := NewRegistry()
	res, err := r.Resolve("math", Capabilities{})
	require.NoError(t, err)

	h := heap.New(0)
	bound := map[string]value.Value{}
	err = Install(h, res.Module, func(name string, v value.Value) error {
		bound[name] = v
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, bound, "math::mean")

	ref, ok := bound["math::mean"].AsPtr()
	require.True(t, ok)
	obj, err := h.Get(ref)
	require.NoError(t, err)
	require.Equal(t, heap.KindNative, obj.Kind)
	require.Equal(t, "math::mean", obj.Native.QualifiedName)
}

func TestMathMeanOverIntVec(t *testing.T) {
	h := heap.New(0)
	v, err := h.NewVec(&heap.Vec{Elem: heap.VecInt, Ints: []int64{2, 4, 6}})
	require.NoError(t, err)

	m := mathModule()
	var meanFn Func
	for _, f := range m.Funcs {
		if f.Name == "mean" {
			meanFn = f
		}
	}
	require.NotNil(t, meanFn.Fn)

	result, err := meanFn.Fn(h, []value.Value{v})
	require.NoError(t, err)
	f, ok := result.AsFloat()
	require.True(t, ok)
	require.Equal(t, 4.0, f)
}

func TestIoDisplayDereferencesInternedStrings(t *testing.T) {
	h := heap.New(0)
	s, err := h.InternString("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", Display(h, s))
	require.Equal(t, "41", Display(h, value.Int(41)))
}
