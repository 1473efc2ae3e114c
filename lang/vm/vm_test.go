package vm

import (
	"testing"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/compiler"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/opt"
	"github.com/aelys-lang/aelys/lang/parser"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/value"
	"github.com/stretchr/testify/require"
)

// compileAndRun mirrors lang/compiler's own compileSource test helper, carried
// one step further through a fresh VM: parse, infer, optimize, compile, then
// execute the resulting chunk function and return its value.
func compileAndRun(t *testing.T, src string) (value.Value, *VM) {
	t.Helper()
	f := token.NewFile("test.aelys", []byte(src))
	chunk, err := parser.Parse(f, "test.aelys")
	require.NoError(t, err)
	errs := &diag.List{}
	prog := sema.Infer(chunk, nil, nil, errs)
	require.Empty(t, errs.Errs)
	_, _ = opt.Run(chunk, prog, opt.LevelFull)

	names := compiler.CollectGlobalNames(chunk)
	globals := compiler.NewGlobals(names, nil)
	h := heap.New(0)
	fn, cerrs := compiler.Compile(chunk, prog, globals, h)
	require.Empty(t, cerrs)

	m := New(h, globals.Names, Limits{})
	result, err := m.Run(fn)
	require.NoError(t, err)
	return result, m
}

func TestForLoopSum(t *testing.T) {
	result, _ := compileAndRun(t, "let mut s = 0\nfor i in 0..5 { s += i }\ns\n")
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(10), n)
}

func TestRecursiveFib(t *testing.T) {
	src := "fn fib(n) { if n < 2 { n } else { fib(n-1) + fib(n-2) } }\nfib(10)\n"
	result, m := compileAndRun(t, src)
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(55), n)
	require.Greater(t, m.Cache.Hits, uint64(0), "fib's recursive calls should settle onto the monomorphic cache path")
}

func TestManualMemoryRoundTrip(t *testing.T) {
	src := "let p = alloc(4)\nstore(p, 0, 42)\nlet v = load(p, 0)\nfree(p)\nv\n"
	result, _ := compileAndRun(t, src)
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(42), n)
}

func TestClosureUpvalueCapture(t *testing.T) {
	src := "fn make_adder(x) { fn(y) { x + y } }\nlet add10 = make_adder(10)\nadd10(5)\n"
	result, _ := compileAndRun(t, src)
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(15), n)
}

func TestVecForEachSum(t *testing.T) {
	src := "let v = Vec[1,2,3]\nlet mut s = 0\nfor x in v { s += x }\ns\n"
	result, _ := compileAndRun(t, src)
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(6), n)
}

func TestBitwisePrecedence(t *testing.T) {
	result, _ := compileAndRun(t, "1 << 4 | 1 << 2 | 1\n")
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(21), n)
}

func TestArithmeticTypeMismatch(t *testing.T) {
	_, err := New(heap.New(0), nil, Limits{}).call(&bytecode.Function{
		Code: []bytecode.Instr{
			bytecode.ABC(bytecode.OpAdd, 0, 1, 2),
			bytecode.ABC(bytecode.OpReturn, 0, 0, 0),
		},
		Constants:    []value.Value{},
		NumRegisters: 3,
		Globals:      bytecode.GlobalLayout{Hash: bytecode.HashLayout(nil)},
	}, nil, nil)
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	require.Equal(t, "TypeMismatch", rerr.Kind)
}

func TestGenericArithPromotesToFloat(t *testing.T) {
	m := New(heap.New(0), nil, Limits{})
	result, err := m.genericArith(bytecode.OpAdd, value.Int(1), value.Float(2.5))
	require.NoError(t, err)
	f, ok := result.AsFloat()
	require.True(t, ok)
	require.Equal(t, 3.5, f)
}

func TestBitwiseShiftMasksAmount(t *testing.T) {
	m := New(heap.New(0), nil, Limits{})
	result, err := m.bitwise(bytecode.OpShl, value.Int(1), value.Int(64))
	require.NoError(t, err)
	n, ok := result.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(1), n, "a shift amount of 64 masks down to 0 mod 64")
}

func TestValuesEqualComparesInternedStringsByContent(t *testing.T) {
	m := New(heap.New(0), nil, Limits{})
	a, err := m.heap.InternString("hello")
	require.NoError(t, err)
	b, err := m.heap.InternString("hello")
	require.NoError(t, err)
	require.True(t, m.valuesEqual(a, b))
}

func TestCompareNumericRejectsNonNumeric(t *testing.T) {
	_, err := compareNumeric(bytecode.OpLt, value.Bool(true), value.Int(1))
	require.Error(t, err)
}
