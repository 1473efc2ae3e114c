package compiler

import "github.com/aelys-lang/aelys/lang/ast"

// CollectGlobalNames scans chunk's direct top-level declarations (not
// descending into nested blocks) and returns the ordered list of names
// that become known globals: every chunk-scope `let` and `fn`. The driver
// combines this with its native registry to build the Globals table
// Compile consumes, so that a call to any of these names can use the
// known-global calling form instead of a generic indirect call.
func CollectGlobalNames(chunk *ast.Chunk) []string {
	var names []string
	for _, s := range chunk.Block.Stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			names = append(names, s.Name.Lit)
		case *ast.FuncDeclStmt:
			names = append(names, s.Name.Lit)
		}
	}
	return names
}
