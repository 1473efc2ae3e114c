package opt

import (
	"testing"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/parser"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/stretchr/testify/require"
)

func parseAndInfer(t *testing.T, src string) (*ast.Chunk, *sema.Program) {
	t.Helper()
	f := token.NewFile("test.aelys", []byte(src))
	chunk, err := parser.Parse(f, "test.aelys")
	require.NoError(t, err)
	errs := &diag.List{}
	prog := sema.Infer(chunk, nil, nil, errs)
	require.Empty(t, errs.Errs)
	return chunk, prog
}

func TestFoldConstantArithmetic(t *testing.T) {
	chunk, prog := parseAndInfer(t, "let x = 1 + 2 * 3\n")
	_, _ = Run(chunk, prog, LevelBasic)
	let := chunk.Block.Stmts[0].(*ast.LetStmt)
	lit, ok := let.Value.(*ast.LiteralExpr)
	require.True(t, ok)
	require.Equal(t, int64(7), lit.Value)
}

func TestFoldBitwiseConstant(t *testing.T) {
	chunk, prog := parseAndInfer(t, "let x = 6 & 3\n")
	_, _ = Run(chunk, prog, LevelBasic)
	let := chunk.Block.Stmts[0].(*ast.LetStmt)
	lit := let.Value.(*ast.LiteralExpr)
	require.Equal(t, int64(2), lit.Value)
}

func TestLocalConstantPropagation(t *testing.T) {
	chunk, prog := parseAndInfer(t, "let x = 2\nlet y = x + 1\n")
	_, _ = Run(chunk, prog, LevelBasic)
	y := chunk.Block.Stmts[1].(*ast.LetStmt)
	lit, ok := y.Value.(*ast.LiteralExpr)
	require.True(t, ok)
	require.Equal(t, int64(3), lit.Value)
}

func TestLocalPropagationSkipsMutable(t *testing.T) {
	chunk, prog := parseAndInfer(t, "let mut x = 2\nlet y = x + 1\n")
	_, _ = Run(chunk, prog, LevelBasic)
	y := chunk.Block.Stmts[1].(*ast.LetStmt)
	bin, ok := y.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	_, isIdent := bin.Left.(*ast.IdentExpr)
	require.True(t, isIdent)
}

func TestWhileLoopConditionNotFoldedAcrossMutation(t *testing.T) {
	src := "let mut i = 0\nwhile i < 3 {\n  i = i + 1\n}\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelBasic)
	ws := chunk.Block.Stmts[1].(*ast.WhileStmt)
	bin, ok := ws.Cond.(*ast.BinaryExpr)
	require.True(t, ok)
	_, isIdent := bin.Left.(*ast.IdentExpr)
	require.True(t, isIdent, "loop condition operand referencing a loop-updated variable must not be folded")
}

func TestGlobalConstantPropagation(t *testing.T) {
	src := "let limit = 10\nfn under(n) {\n  return n < limit\n}\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelFull)
	fn := chunk.Block.Stmts[1].(*ast.FuncDeclStmt)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Value.(*ast.BinaryExpr)
	lit, ok := bin.Right.(*ast.LiteralExpr)
	require.True(t, ok)
	require.Equal(t, int64(10), lit.Value)
}

func TestInlineSimpleFunction(t *testing.T) {
	src := "fn square(n) {\n  return n * n\n}\nlet r = square(4)\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelFull)
	let := chunk.Block.Stmts[1].(*ast.LetStmt)
	lit, ok := let.Value.(*ast.LiteralExpr)
	require.True(t, ok, "square(4) should have both inlined and constant-folded to 16")
	require.Equal(t, int64(16), lit.Value)
}

func TestInlineAnnotatedSimpleFunction(t *testing.T) {
	src := "@inline\nfn twice(n) {\n  return n + n\n}\nlet r = twice(5)\n"
	chunk, prog := parseAndInfer(t, src)
	stats, _ := Run(chunk, prog, LevelFull)
	require.Equal(t, 1, stats.FunctionsInlined)
}

func TestInlineSkipsRecursiveCall(t *testing.T) {
	src := "fn fib(n) {\n  if n < 2 {\n    return n\n  }\n  return fib(n - 1) + fib(n - 2)\n}\nlet r = fib(10)\n"
	chunk, prog := parseAndInfer(t, src)
	stats, warnings := Run(chunk, prog, LevelFull)
	require.Equal(t, 0, stats.FunctionsInlined)
	_ = warnings
	let := chunk.Block.Stmts[1].(*ast.LetStmt)
	_, ok := let.Value.(*ast.CallExpr)
	require.True(t, ok, "a recursive function must remain a real call, not be inlined")
}

func TestDeadLocalEliminated(t *testing.T) {
	src := "let unused = 1 + 1\nlet y = 5\ny\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelBasic)
	require.Len(t, chunk.Block.Stmts, 2)
	let := chunk.Block.Stmts[0].(*ast.LetStmt)
	require.Equal(t, "y", let.Name.Lit)
}

func TestDeadLocalKeptWhenCaptured(t *testing.T) {
	src := "let base = 10\nlet adder = fn(n) { n + base }\nadder(1)\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelBasic)
	require.Len(t, chunk.Block.Stmts, 3)
	let := chunk.Block.Stmts[0].(*ast.LetStmt)
	require.Equal(t, "base", let.Name.Lit)
}

func TestSideEffectingLocalNotEliminated(t *testing.T) {
	src := "fn noisy() {\n  return 1\n}\nlet x = noisy()\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelBasic)
	require.Len(t, chunk.Block.Stmts, 2)
}

func TestDecoratorDesugars(t *testing.T) {
	src := "@memo\nfn fib(n) {\n  return n\n}\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelNone)
	let, ok := chunk.Block.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	require.Equal(t, "fib", let.Name.Lit)
	call, ok := let.Value.(*ast.CallExpr)
	require.True(t, ok)
	id, ok := call.Fn.(*ast.IdentExpr)
	require.True(t, ok)
	require.Equal(t, "memo", id.Lit)
	_, ok = call.Args[0].(*ast.LambdaExpr)
	require.True(t, ok)
}

func TestStackedDecoratorsDesugarInnermostFirst(t *testing.T) {
	src := "@a\n@b\nfn f() {\n  return 1\n}\n"
	chunk, prog := parseAndInfer(t, src)
	_, _ = Run(chunk, prog, LevelNone)
	let := chunk.Block.Stmts[0].(*ast.LetStmt)
	outer := let.Value.(*ast.CallExpr)
	require.Equal(t, "a", outer.Fn.(*ast.IdentExpr).Lit)
	inner := outer.Args[0].(*ast.CallExpr)
	require.Equal(t, "b", inner.Fn.(*ast.IdentExpr).Lit)
}

func TestLevelNoneSkipsOptimization(t *testing.T) {
	chunk, prog := parseAndInfer(t, "let x = 1 + 2\n")
	_, _ = Run(chunk, prog, LevelNone)
	let := chunk.Block.Stmts[0].(*ast.LetStmt)
	_, ok := let.Value.(*ast.BinaryExpr)
	require.True(t, ok, "LevelNone must not fold constants")
}
