package parser

import (
	"testing"

	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	f := token.NewFile("test.aelys", []byte(src))
	ch, err := Parse(f, "test.aelys")
	require.NoError(t, err)
	return ch
}

func TestParseLetAndArithmetic(t *testing.T) {
	ch := parse(t, "let x = 1 + 2 * 3\n")
	require.Len(t, ch.Block.Stmts, 1)
	let, ok := ch.Block.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	require.Equal(t, "x", let.Name.Lit)
	bin, ok := let.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Op)
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, rhs.Op)
}

func TestParseMutLetWithType(t *testing.T) {
	ch := parse(t, "let mut n: int = 0\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	require.True(t, let.Mut)
	require.Equal(t, "int", let.Type.Name)
}

func TestParseIfElifElse(t *testing.T) {
	ch := parse(t, `
if x < 1 {
	let a = 1
} elif x < 2 {
	let b = 2
} else {
	let c = 3
}
`)
	require.Len(t, ch.Block.Stmts, 1)
	ifStmt := ch.Block.Stmts[0].(*ast.IfStmt)
	require.NotNil(t, ifStmt.Else)
	elif, ok := ifStmt.Else.(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, elif.Else)
	_, ok = elif.Else.(*ast.BlockStmt)
	require.True(t, ok)
}

func TestParseForRange(t *testing.T) {
	ch := parse(t, "for i in 0..10 step 2 {\n  let x = i\n}\n")
	fr := ch.Block.Stmts[0].(*ast.ForRangeStmt)
	require.Equal(t, "i", fr.Name.Lit)
	require.False(t, fr.Inclusive)
	require.NotNil(t, fr.Step)
}

func TestParseForRangeInclusive(t *testing.T) {
	ch := parse(t, "for i in 0..=10 {\n  let x = i\n}\n")
	fr := ch.Block.Stmts[0].(*ast.ForRangeStmt)
	require.True(t, fr.Inclusive)
}

func TestParseForEach(t *testing.T) {
	ch := parse(t, "for item in items {\n  let x = item\n}\n")
	_, ok := ch.Block.Stmts[0].(*ast.ForEachStmt)
	require.True(t, ok)
}

func TestParseFuncDeclWithDecoratorAndReturnType(t *testing.T) {
	ch := parse(t, "@memo\nfn add(a: int, b: int) -> int {\n  return a + b\n}\n")
	fn := ch.Block.Stmts[0].(*ast.FuncDeclStmt)
	require.Equal(t, "add", fn.Name.Lit)
	require.Len(t, fn.Decorators, 1)
	require.Len(t, fn.Sig.Params, 2)
	require.Equal(t, "int", fn.Sig.ReturnType.Name)
}

func TestParseStructDeclAndLiteral(t *testing.T) {
	ch := parse(t, "struct Point { x: int, y: int }\nlet p = Point{x: 1, y: 2}\n")
	require.Len(t, ch.Block.Stmts, 2)
	sd := ch.Block.Stmts[0].(*ast.StructDeclStmt)
	require.Equal(t, "Point", sd.Name.Lit)
	require.Len(t, sd.Fields, 2)
	let := ch.Block.Stmts[1].(*ast.LetStmt)
	lit := let.Value.(*ast.StructLitExpr)
	require.Equal(t, "Point", lit.Name.Lit)
	require.Len(t, lit.Fields, 2)
}

func TestParseTypedArrayLiteral(t *testing.T) {
	ch := parse(t, "let v = Vec<int>[1, 2, 3]\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	arr := let.Value.(*ast.ArrayExpr)
	require.Equal(t, "Vec", arr.Kind)
	require.Equal(t, "int", arr.Elem.Name)
	require.Len(t, arr.Items, 3)
}

func TestParseCompoundAssignDesugars(t *testing.T) {
	ch := parse(t, "x += 1\n")
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	assign := es.Expr.(*ast.AssignExpr)
	bin := assign.Value.(*ast.BinaryExpr)
	require.Equal(t, token.PLUS, bin.Op)
}

func TestParsePostIncrementDesugars(t *testing.T) {
	ch := parse(t, "x++\n")
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	assign := es.Expr.(*ast.AssignExpr)
	bin := assign.Value.(*ast.BinaryExpr)
	require.Equal(t, token.PLUS, bin.Op)
}

func TestParseLambdaAndCall(t *testing.T) {
	ch := parse(t, "let add = fn(a, b) { a + b }\nadd(1, 2)\n")
	require.Len(t, ch.Block.Stmts, 2)
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	_, ok := let.Value.(*ast.LambdaExpr)
	require.True(t, ok)
	es := ch.Block.Stmts[1].(*ast.ExprStmt)
	call := es.Expr.(*ast.CallExpr)
	require.Len(t, call.Args, 2)
}

func TestParseIfExpression(t *testing.T) {
	ch := parse(t, "let x = if cond { 1 } else { 2 }\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	_, ok := let.Value.(*ast.IfExpr)
	require.True(t, ok)
}

func TestParseBitwisePrecedence(t *testing.T) {
	ch := parse(t, "let x = 1 | 2 & 3 ^ 4\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	top := let.Value.(*ast.BinaryExpr)
	require.Equal(t, token.PIPE, top.Op)
}

func TestParseLogicalWordAndSymbolForms(t *testing.T) {
	ch := parse(t, "let x = true and false\nlet y = true && false\n")
	x := ch.Block.Stmts[0].(*ast.LetStmt).Value.(*ast.BinaryExpr)
	y := ch.Block.Stmts[1].(*ast.LetStmt).Value.(*ast.BinaryExpr)
	require.Equal(t, token.ANDAND, x.Op)
	require.Equal(t, token.ANDAND, y.Op)
}

func TestParseNeedsImport(t *testing.T) {
	ch := parse(t, "needs math.stat as stat\n")
	imp := ch.Block.Stmts[0].(*ast.ImportStmt)
	require.Equal(t, []string{"math", "stat"}, imp.Path)
	require.Equal(t, "stat", imp.Alias)
}

func TestParseNeedsWildcard(t *testing.T) {
	ch := parse(t, "needs math.*\n")
	imp := ch.Block.Stmts[0].(*ast.ImportStmt)
	require.True(t, imp.Wildcard)
}

func TestParseSliceIndex(t *testing.T) {
	ch := parse(t, "let s = arr[1..3]\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	idx := let.Value.(*ast.IndexExpr)
	_, ok := idx.Index.(*ast.RangeExpr)
	require.True(t, ok)
}

func TestParseSliceOpenEndedHigh(t *testing.T) {
	ch := parse(t, "let s = arr[1..]\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	idx := let.Value.(*ast.IndexExpr)
	rng := idx.Index.(*ast.RangeExpr)
	require.NotNil(t, rng.Low)
	require.Nil(t, rng.High)
}

func TestParseSliceOpenEndedLow(t *testing.T) {
	ch := parse(t, "let s = arr[..3]\n")
	let := ch.Block.Stmts[0].(*ast.LetStmt)
	idx := let.Value.(*ast.IndexExpr)
	rng := idx.Index.(*ast.RangeExpr)
	require.Nil(t, rng.Low)
	require.NotNil(t, rng.High)
}

func TestParseErrorRecovery(t *testing.T) {
	f := token.NewFile("test.aelys", []byte("let = \nlet y = 1\n"))
	ch, err := Parse(f, "test.aelys")
	require.Error(t, err)
	require.NotNil(t, ch)
}
