package sema

import (
	"testing"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/stretchr/testify/require"
)

func testFile() *token.File { return token.NewFile("test.aelys", []byte("test")) }

func ident(name string) *ast.IdentExpr {
	return &ast.IdentExpr{Lit: name, File: testFile()}
}

func intLit(n string) *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.INT, Raw: n, Value: int64(0), File: testFile()}
}

func chunkOf(stmts ...ast.Stmt) *ast.Chunk {
	f := testFile()
	return &ast.Chunk{Name: "test", File: f, Block: &ast.Block{File: f, Stmts: stmts}}
}

func TestInferLetArithmetic(t *testing.T) {
	// let x = 1 + 2
	letStmt := &ast.LetStmt{
		Name: ident("x"),
		Value: &ast.BinaryExpr{
			Left:  intLit("1"),
			Op:    token.PLUS,
			Right: intLit("2"),
		},
	}
	errs := &diag.List{}
	prog := Infer(chunkOf(letStmt), nil, nil, errs)
	require.Empty(t, errs.Errs)
	rt := prog.Types[letStmt.Value]
	require.NotNil(t, rt)
	require.Equal(t, "int", rt.String())
}

func TestInferUndefinedIdentifier(t *testing.T) {
	exprStmt := &ast.ExprStmt{Expr: ident("nope")}
	errs := &diag.List{}
	Infer(chunkOf(exprStmt), nil, nil, errs)
	require.NotEmpty(t, errs.Errs)
}

func TestInferIdentifierResolvesToLet(t *testing.T) {
	letStmt := &ast.LetStmt{Name: ident("x"), Value: intLit("5")}
	use := ident("x")
	exprStmt := &ast.ExprStmt{Expr: use}
	errs := &diag.List{}
	prog := Infer(chunkOf(letStmt, exprStmt), nil, nil, errs)
	require.Empty(t, errs.Errs)
	b, ok := prog.Bindings[use]
	require.True(t, ok)
	require.Equal(t, Local, b.Scope)
	require.Equal(t, "x", b.Name)
}

func TestInferBitwiseRequiresInteger(t *testing.T) {
	exprStmt := &ast.ExprStmt{
		Expr: &ast.BinaryExpr{
			Left:  &ast.LiteralExpr{Type: token.TRUE, Raw: "true"},
			Op:    token.AMPERSAND,
			Right: &ast.LiteralExpr{Type: token.TRUE, Raw: "true"},
		},
	}
	errs := &diag.List{}
	Infer(chunkOf(exprStmt), nil, nil, errs)
	require.NotEmpty(t, errs.Errs)
}

func TestInferLogicalRequiresBool(t *testing.T) {
	exprStmt := &ast.ExprStmt{
		Expr: &ast.BinaryExpr{
			Left:  &ast.LiteralExpr{Type: token.TRUE, Raw: "true"},
			Op:    token.ANDAND,
			Right: &ast.LiteralExpr{Type: token.FALSE, Raw: "false"},
		},
	}
	errs := &diag.List{}
	prog := Infer(chunkOf(exprStmt), nil, nil, errs)
	require.Empty(t, errs.Errs)
	require.Equal(t, "bool", prog.Types[exprStmt.Expr].String())
}

func TestInferForRangeBindsLoopVar(t *testing.T) {
	loopVar := ident("i")
	use := ident("i")
	forStmt := &ast.ForRangeStmt{
		Name: loopVar,
		Low:  intLit("0"),
		High: intLit("10"),
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{Expr: use}}},
	}
	errs := &diag.List{}
	prog := Infer(chunkOf(forStmt), nil, nil, errs)
	require.Empty(t, errs.Errs)
	b, ok := prog.Bindings[use]
	require.True(t, ok)
	require.Equal(t, "i", b.Name)
}

func TestInferFuncDeclParamsAndReturn(t *testing.T) {
	param := &ast.Param{Name: ident("n"), Type: &ast.TypeAnnotation{Name: "int"}}
	paramUse := ident("n")
	fn := &ast.FuncDeclStmt{
		Name: ident("identity"),
		Sig:  &ast.FuncSignature{Params: []*ast.Param{param}},
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{Expr: paramUse}}},
	}
	errs := &diag.List{}
	Infer(chunkOf(fn), nil, nil, errs)
	require.Empty(t, errs.Errs)
}

func TestInferComparisonIncompatibleIsWarningNotError(t *testing.T) {
	exprStmt := &ast.ExprStmt{
		Expr: &ast.BinaryExpr{
			Left:  intLit("1"),
			Op:    token.EQEQ,
			Right: &ast.LiteralExpr{Type: token.TRUE, Raw: "true"},
		},
	}
	errs := &diag.List{}
	prog := Infer(chunkOf(exprStmt), nil, nil, errs)
	require.Empty(t, errs.Errs)
	require.NotEmpty(t, prog.Warnings)
}
