package stdlib

import (
	"os"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// fsModule is the representative filesystem module behind the "fs"
// capability (spec §6's allow_fs flag): reading and writing whole files by
// path. The dynamic-loader mechanism for arbitrary filesystem-backed FFI
// modules is out of scope (SPEC_FULL §D); this is the stdlib's own native
// surface, not FFI.
func fsModule() *Module {
	return &Module{
		Name:       "fs",
		Capability: CapFS,
		Funcs: []Func{
			{Name: "read_to_string", Arity: 1, Capability: CapFS, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				path, err := wantString(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return value.Value{}, err
				}
				return h.InternString(string(data))
			}},
			{Name: "write_string", Arity: 2, Capability: CapFS, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				path, err := wantString(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				content, err := wantString(h, args, 1)
				if err != nil {
					return value.Value{}, err
				}
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					return value.Value{}, err
				}
				return value.Null, nil
			}},
			{Name: "exists", Arity: 1, Capability: CapFS, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				path, err := wantString(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				_, statErr := os.Stat(path)
				return value.Bool(statErr == nil), nil
			}},
		},
	}
}
