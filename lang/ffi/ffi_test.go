package ffi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/stdlib"
	"github.com/aelys-lang/aelys/lang/value"
)

type fakeResolver struct {
	descs map[string]*Descriptor
	err   error
}

func (f *fakeResolver) Resolve(name string) (*Descriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.descs[name]
	if !ok {
		return nil, errNotFound(name)
	}
	return d, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "no such foreign module: " + string(e) }

func sampleDescriptor() *Descriptor {
	return &Descriptor{
		Name:       "vecmath",
		Checksum:   Checksum([]byte("vecmath-v1")),
		Capability: stdlib.CapExec,
		Exports: []Export{
			{Name: "double", Kind: ExportFunction, Arity: 1, Fn: func(args []value.Value) (value.Value, error) {
				n, _ := args[0].AsInt()
				return value.Int(n * 2), nil
			}},
			{Name: "version", Kind: ExportConstant, Value: value.Int(1)},
		},
	}
}

func TestLoadSucceedsOnMatchingManifest(t *testing.T) {
	desc := sampleDescriptor()
	r := &fakeResolver{descs: map[string]*Descriptor{"vecmath": desc}}
	manifest := Manifest{"vecmath": {Checksum: desc.Checksum, Capability: stdlib.CapExec}}

	got, err := Load(r, "vecmath", manifest, stdlib.Capabilities{Exec: true})
	require.NoError(t, err)
	require.Equal(t, desc, got)
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	desc := sampleDescriptor()
	r := &fakeResolver{descs: map[string]*Descriptor{"vecmath": desc}}
	manifest := Manifest{"vecmath": {Checksum: "deadbeef", Capability: stdlib.CapExec}}

	_, err := Load(r, "vecmath", manifest, stdlib.Capabilities{Exec: true})
	require.Error(t, err)
}

func TestLoadRejectsMissingCapability(t *testing.T) {
	desc := sampleDescriptor()
	r := &fakeResolver{descs: map[string]*Descriptor{"vecmath": desc}}
	manifest := Manifest{"vecmath": {Checksum: desc.Checksum, Capability: stdlib.CapExec}}

	_, err := Load(r, "vecmath", manifest, stdlib.Capabilities{})
	require.Error(t, err)
}

func TestLoadRejectsUnlistedModule(t *testing.T) {
	r := &fakeResolver{descs: map[string]*Descriptor{}}
	_, err := Load(r, "vecmath", Manifest{}, stdlib.Capabilities{Trusted: true})
	require.Error(t, err)
}

func TestInstallBindsFunctionAndConstantExports(t *testing.T) {
	desc := sampleDescriptor()
	h := heap.New(0)
	bound := map[string]value.Value{}

	err := Install(h, desc, func(name string, v value.Value) error {
		bound[name] = v
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, bound, "vecmath::double")
	require.Contains(t, bound, "vecmath::version")

	n, ok := bound["vecmath::version"].AsInt()
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ref, ok := bound["vecmath::double"].AsPtr()
	require.True(t, ok)
	obj, err := h.Get(ref)
	require.NoError(t, err)
	require.Equal(t, heap.KindNative, obj.Kind)

	result, err := obj.Native.Fn([]value.Value{value.Int(21)})
	require.NoError(t, err)
	dv, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(42), dv)
}

func TestDescriptorQualifiedNativesOmitsNonFunctionExports(t *testing.T) {
	desc := sampleDescriptor()
	require.Equal(t, []string{"vecmath::double"}, desc.QualifiedNatives())
}
