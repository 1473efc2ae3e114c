package stdlib

import (
	"fmt"

	"github.com/gonum/stat"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// mathModule is SPEC_FULL's representative math module: mean, stddev, and
// variance over a Vec<float>, backed by gonum/stat the way
// _examples/qjcg-driving/main.go computes survey statistics
// (stat.MeanStdDev).
func mathModule() *Module {
	return &Module{
		Name: "math",
		Funcs: []Func{
			{Name: "mean", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				xs, err := wantFloatVec(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				return value.Float(stat.Mean(xs, nil)), nil
			}},
			{Name: "stddev", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				xs, err := wantFloatVec(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				_, std := stat.MeanStdDev(xs, nil)
				return value.Float(std), nil
			}},
			{Name: "variance", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				xs, err := wantFloatVec(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				return value.Float(stat.Variance(xs, nil)), nil
			}},
		},
	}
}

// wantFloatVec extracts a []float64 from a Vec<float> argument, widening a
// Vec<int> in place since both are numeric (spec §3's Vec is specialized
// by element tag, but math::mean etc. accept either).
func wantFloatVec(h *heap.Heap, args []value.Value, i int) ([]float64, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("argument %d missing", i)
	}
	ref, ok := args[i].AsPtr()
	if !ok {
		return nil, fmt.Errorf("argument %d: expected Vec, got %s", i, args[i].Kind())
	}
	obj, err := h.Get(ref)
	if err != nil {
		return nil, err
	}
	if obj.Kind != heap.KindVec {
		return nil, fmt.Errorf("argument %d: expected Vec, got %s", i, obj.Kind)
	}
	switch obj.Vec.Elem {
	case heap.VecFloat:
		return obj.Vec.Flts, nil
	case heap.VecInt:
		xs := make([]float64, len(obj.Vec.Ints))
		for i, n := range obj.Vec.Ints {
			xs[i] = float64(n)
		}
		return xs, nil
	default:
		return nil, fmt.Errorf("argument %d: expected a numeric Vec, got Vec of element tag %d", i, obj.Vec.Elem)
	}
}
