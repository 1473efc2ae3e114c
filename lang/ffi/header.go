package ffi

import (
	"fmt"
	"os"
	"runtime"

	"modernc.org/cc/v4"
)

// CrossCheckArity parses a foreign module's bundled C shim (function
// definitions with the real parameter count, the way a generated FFI
// binding's glue code looks) and verifies every Export's declared arity
// against the matching C function's parameter count, catching a
// descriptor that drifted from the native code it wraps before any
// native is installed. Grounded on _examples/ajroetker-goat/main.go's
// parseSource/convertFunction, which walks the same cc/v4 AST to extract
// function signatures from a C translation unit; adapted here to count
// parameters only, since ffi only needs arity, not full type info.
func CrossCheckArity(sourcePath string, exports []Export) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("ffi: open shim %s: %w", sourcePath, err)
	}
	defer f.Close()

	cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return fmt.Errorf("ffi: cc config: %w", err)
	}
	ast, err := cc.Parse(cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: sourcePath, Value: f},
	})
	if err != nil {
		return fmt.Errorf("ffi: parse shim %s: %w", sourcePath, err)
	}

	arities := make(map[string]int)
	for tu := ast.TranslationUnit; tu != nil; tu = tu.TranslationUnit {
		ed := tu.ExternalDeclaration
		if ed.Case != cc.ExternalDeclarationFuncDef {
			continue
		}
		fd := ed.FunctionDefinition
		dd := fd.Declarator.DirectDeclarator
		if dd.Case != cc.DirectDeclaratorFuncParam {
			continue
		}
		name := dd.DirectDeclarator.Token.SrcStr()
		arities[name] = countParams(dd.ParameterTypeList.ParameterList)
	}

	for _, exp := range exports {
		if exp.Kind != ExportFunction {
			continue
		}
		n, ok := arities[exp.Name]
		if !ok {
			return fmt.Errorf("ffi: export %q has no matching function in %s", exp.Name, sourcePath)
		}
		if n != exp.Arity {
			return fmt.Errorf("ffi: export %q declares arity %d, shim defines %d parameter(s)", exp.Name, exp.Arity, n)
		}
	}
	return nil
}

func countParams(params *cc.ParameterList) int {
	if params == nil {
		return 0
	}
	n := 1
	if params.ParameterList != nil {
		n += countParams(params.ParameterList)
	}
	return n
}
