// Package opt runs the fixed optimizer pipeline over a typed AST (spec
// §4.4): decorator desugaring, constant folding, local and global constant
// propagation, function inlining, and dead-code elimination. Each pass is
// grounded on the general shape of the teacher's lang/resolver traversal
// (a stack of per-function scopes visited alongside the AST) rather than on
// any single teacher file, since the teacher has no optimizer of its own.
package opt

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/token"
)

// Level controls how much of the pipeline runs. None disables every pass
// (the typed AST is returned unchanged save for decorator desugaring, which
// is not an optimization and always runs so the backend never has to know
// about decorators).
type Level int

const (
	LevelNone Level = iota
	LevelBasic
	LevelFull
)

// Warning is a non-fatal observation surfaced to the driver for display
// (spec §4.4: "each pass emits statistics and warnings").
type Warning struct {
	Span token.Span
	Msg  string
}

// Stats aggregates per-pass counters the driver can log or test against.
type Stats struct {
	DecoratorsDesugared int
	ConstantsFolded     int
	LocalsPropagated    int
	GlobalsPropagated   int
	FunctionsInlined    int
	StmtsEliminated     int
}

// Run executes the fixed pipeline over chunk in place, consulting prog for
// resolved types and bindings. It returns aggregate statistics and any
// warnings; chunk's statement list is mutated to the optimized form.
func Run(chunk *ast.Chunk, prog *sema.Program, level Level) (*Stats, []Warning) {
	stats := &Stats{}
	var warnings []Warning

	d := &desugarer{stats: stats}
	chunk.Block.Stmts = d.stmts(chunk.Block.Stmts)

	if level == LevelNone {
		return stats, warnings
	}

	f := &folder{prog: prog, stats: stats}
	chunk.Block.Stmts = f.stmts(chunk.Block.Stmts)

	lp := &localProp{prog: prog, stats: stats}
	chunk.Block.Stmts = lp.stmts(chunk.Block.Stmts, nil)

	// Propagating a constant into a use can itself expose new
	// constant-foldable expressions (`let y = x + 1` with x == 2), so fold
	// once more after substitution.
	refold := &folder{prog: prog, stats: stats}
	chunk.Block.Stmts = refold.stmts(chunk.Block.Stmts)

	if level == LevelFull {
		gp := &globalProp{prog: prog, stats: stats}
		chunk.Block.Stmts = gp.run(chunk.Block.Stmts)
		chunk.Block.Stmts = refold.stmts(chunk.Block.Stmts)

		in := &inliner{prog: prog, stats: stats}
		chunk.Block.Stmts, warnings = in.run(chunk.Block.Stmts, warnings)

		// Inlining can expose new constant-foldable expressions (e.g. a
		// call to a function returning `n * n` substituted with a literal
		// argument), so fold once more before dead-code elimination.
		chunk.Block.Stmts = refold.stmts(chunk.Block.Stmts)
	}

	dce := &eliminator{stats: stats}
	chunk.Block.Stmts = dce.stmts(chunk.Block.Stmts)

	return stats, warnings
}
