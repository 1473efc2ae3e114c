package compiler

import (
	"testing"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/opt"
	"github.com/aelys-lang/aelys/lang/parser"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, src string, natives map[string]bool) (*bytecode.Function, []*Error) {
	t.Helper()
	f := token.NewFile("test.aelys", []byte(src))
	chunk, err := parser.Parse(f, "test.aelys")
	require.NoError(t, err)
	errs := &diag.List{}
	prog := sema.Infer(chunk, nil, nil, errs)
	require.Empty(t, errs.Errs)
	_, _ = opt.Run(chunk, prog, opt.LevelFull)

	names := CollectGlobalNames(chunk)
	globals := NewGlobals(names, natives)
	h := heap.New(0)
	return Compile(chunk, prog, globals, h)
}

func countOp(code []bytecode.Instr, op bytecode.Opcode) int {
	n := 0
	for _, in := range code {
		if in.Op() == op {
			n++
		}
	}
	return n
}

func TestCompileConstantLet(t *testing.T) {
	// x must be read afterward or the dead-code eliminator (which applies at
	// every scope, including chunk top level) would drop the binding outright.
	fn, errs := compileSource(t, "let x = 1 + 2\nx\n", nil)
	require.Empty(t, errs)
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpSetGlobalIdx))
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpLoadK))
}

func TestCompileKnownGlobalCall(t *testing.T) {
	// a two-statement body keeps the LevelFull inliner, which only takes
	// single-expression bodies, from replacing the call
	src := "fn square(n) {\n  let m = n * n\n  return m\n}\nlet r = square(5)\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Len(t, fn.Nested, 1)
	require.Equal(t, 1, fn.Nested[0].Arity)
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpCallGlobal))
	require.Equal(t, 0, countOp(fn.Code, bytecode.OpCall), "a direct call to a known top-level function must use the known-global form")
}

func TestCompileRecursiveFunctionUsesKnownGlobalCall(t *testing.T) {
	src := "fn fib(n) {\n  if n < 2 {\n    return n\n  }\n  return fib(n - 1) + fib(n - 2)\n}\nlet r = fib(10)\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Len(t, fn.Nested, 1)
	require.GreaterOrEqual(t, countOp(fn.Nested[0].Code, bytecode.OpCallGlobal), 2, "fib's two recursive calls should both resolve as known-global calls")
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	src := "fn make_adder(base) {\n  return fn(n) { n + base }\n}\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Len(t, fn.Nested, 1)
	makeAdder := fn.Nested[0]
	require.Len(t, makeAdder.Nested, 1, "the inner lambda compiles as a nested function of make_adder")
	inner := makeAdder.Nested[0]
	require.Len(t, inner.Upvalues, 1)
	require.True(t, inner.Upvalues[0].IsLocal, "base is a direct local of make_adder, not itself captured transitively")
	require.Equal(t, 1, countOp(makeAdder.Code, bytecode.OpMakeClosure))
}

func TestCompileForRangeLoop(t *testing.T) {
	src := "let mut total = 0\nfor i in 0..10 {\n  total = total + i\n}\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpForLoopI))
}

func TestCompileInclusiveForRangeLoop(t *testing.T) {
	src := "for i in 0..=10 {\n  i\n}\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpForLoopIInc))
}

func TestCompileForEachOverVec(t *testing.T) {
	src := "let xs = Vec<int>[1, 2, 3]\nlet mut total = 0\nfor x in xs {\n  total = total + x\n}\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpVecForLoop))
}

func TestCompileManualMemoryBuiltins(t *testing.T) {
	src := "let p = alloc(4)\nstore(p, 0, 42)\nlet v = load(p, 0)\nfree(p)\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpAlloc))
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpStoreMemI))
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpLoadMemI))
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpFree))
}

func TestCompileBitwiseShiftAndOrPrecedence(t *testing.T) {
	fn, errs := compileSource(t, "let x = 1 << 2 | 3\nx\n", nil)
	require.Empty(t, errs)
	// Both operands are untyped int literals, so the constant folder
	// should have reduced this to a single literal before codegen; no
	// shift/or opcode should remain.
	require.Equal(t, 0, countOp(fn.Code, bytecode.OpShl))
	require.Equal(t, 0, countOp(fn.Code, bytecode.OpBitOr))
	require.Equal(t, 1, countOp(fn.Code, bytecode.OpLoadK))
}

func TestCompileUndefinedVariableIsAnError(t *testing.T) {
	_, errs := compileSource(t, "let x = undefined_name\n", nil)
	require.NotEmpty(t, errs)
}

func TestCompileAssignToImmutableIsAnError(t *testing.T) {
	_, errs := compileSource(t, "let x = 1\nx = 2\n", nil)
	require.NotEmpty(t, errs)
}

func TestCompileAssignToLoopVariableIsAnError(t *testing.T) {
	_, errs := compileSource(t, "for i in 0..10 {\n  i = i + 1\n}\n", nil)
	require.NotEmpty(t, errs)
}

func TestCompileBreakOutsideLoopIsAnError(t *testing.T) {
	_, errs := compileSource(t, "break\n", nil)
	require.NotEmpty(t, errs)
}

func TestCompileBreakAndContinueInsideLoop(t *testing.T) {
	src := "let mut i = 0\nwhile i < 10 {\n  if i == 5 {\n    break\n  }\n  i = i + 1\n  continue\n}\n"
	fn, errs := compileSource(t, src, nil)
	require.Empty(t, errs)
	require.GreaterOrEqual(t, countOp(fn.Code, bytecode.OpJmp), 2)
}

func TestCollectGlobalNames(t *testing.T) {
	f := token.NewFile("test.aelys", []byte("let a = 1\nfn b() {\n  return 1\n}\n"))
	chunk, err := parser.Parse(f, "test.aelys")
	require.NoError(t, err)
	names := CollectGlobalNames(chunk)
	require.Equal(t, []string{"a", "b"}, names)
}
