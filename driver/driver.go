package driver

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/compiler"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/opt"
	"github.com/aelys-lang/aelys/lang/parser"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/stdlib"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/value"
	"github.com/aelys-lang/aelys/lang/vm"
)

// Result is what a completed Run produced.
type Result struct {
	Value value.Value
	VM    *vm.VM
	Heap  *heap.Heap
	Stats *opt.Stats
	Cache vm.CacheStats
}

// compiled is the output of the shared parse-through-compile pipeline,
// before a VM exists to run or an envelope is written.
type compiled struct {
	fn       *bytecode.Function
	h        *heap.Heap
	globals  *compiler.Globals
	resolved []*stdlib.Resolved
	stats    *opt.Stats
}

// Run implements spec §6's program invocation end to end: parse, resolve
// `needs` modules against cfg's capabilities, type-infer, optimize, build
// the combined globals table (Aelys declarations plus resolved natives),
// compile, install native/constant bindings, and execute the program's
// top-level function. The returned error is a *diag.List for any
// compile-time failure (lex, parse, type, module/symbol/capability); a
// *vm.RuntimeError for a runtime failure.
func Run(filename string, src []byte, cfg Config) (*Result, error) {
	c, err := compileProgram(filename, src, cfg, stdlib.NewRegistry())
	if err != nil {
		return nil, err
	}

	m := vm.New(c.h, c.globals.Names, cfg.Limits())
	if err := installModules(c.h, m, c.resolved); err != nil {
		return nil, err
	}

	result, err := m.Run(c.fn)
	if err != nil {
		return nil, err
	}
	logf("DEBUG", "run %s: cache hits=%d misses=%d rebuilds=%d", filename, m.Cache.Hits, m.Cache.Misses, m.Cache.Rebuilds)
	return &Result{Value: result, VM: m, Heap: c.h, Stats: c.stats, Cache: m.Cache}, nil
}

// Compile runs the pipeline through lang/compiler and returns the
// top-level function plus the heap its constants live in, ready for
// lang/bytecode.Encode, without constructing a VM or executing anything
// (spec §6's `compile` mode: produce a VBXQ envelope, don't run it).
func Compile(filename string, src []byte, cfg Config) (*bytecode.Function, *heap.Heap, error) {
	c, err := compileProgram(filename, src, cfg, stdlib.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	return c.fn, c.h, nil
}

func compileProgram(filename string, src []byte, cfg Config, registry *stdlib.Registry) (*compiled, error) {
	f := token.NewFile(filename, src)

	chunk, err := parser.Parse(f, filename)
	if err != nil {
		return nil, err
	}

	errs := &diag.List{}
	caps := cfg.Capabilities()
	resolved, needsErrs := resolveNeeds(chunk, registry, caps)
	if needsErrs.Err() != nil {
		return nil, needsErrs
	}

	prog := sema.Infer(chunk, nil, nil, errs)
	if errs.Err() != nil {
		return nil, errs
	}

	stats, _ := opt.Run(chunk, prog, cfg.OptLevel)
	logf("DEBUG", "optimized %s: %d modules resolved", filename, len(resolved))

	// lo.Uniq drops duplicate qualified names that arise when a module is
	// reachable through both an explicit `needs` and a `needs *` wildcard
	// in the same program.
	nativeNames := lo.Uniq(lo.FlatMap(resolved, func(res *stdlib.Resolved, _ int) []string {
		return res.QualifiedNatives()
	}))
	natives := make(map[string]bool, len(nativeNames))
	for _, n := range nativeNames {
		natives[n] = true
	}

	names := append(compiler.CollectGlobalNames(chunk), nativeNames...)
	globals := compiler.NewGlobals(names, natives)

	h := heap.New(cfg.MaxHeapBytes)
	fn, cerrs := compiler.Compile(chunk, prog, globals, h)
	if len(cerrs) > 0 {
		for _, e := range cerrs {
			errs.Add(diag.Symbol, e.Span, "%s", e.Msg)
		}
		return nil, errs
	}

	return &compiled{fn: fn, h: h, globals: globals, resolved: resolved, stats: stats}, nil
}

// resolveNeeds walks chunk's top-level `needs` statements, resolving each
// against registry under caps. A capability-denied or module-not-found
// failure becomes a diag.Capability / diag.Module compile error (spec §7)
// rather than a runtime failure, since module loading happens before the
// program ever executes.
func resolveNeeds(chunk *ast.Chunk, registry *stdlib.Registry, caps stdlib.Capabilities) ([]*stdlib.Resolved, *diag.List) {
	errs := &diag.List{}
	var resolved []*stdlib.Resolved
	for _, stmt := range chunk.Block.Stmts {
		imp, ok := stmt.(*ast.ImportStmt)
		if !ok {
			continue
		}
		if imp.Wildcard {
			for _, name := range registry.Names() {
				res, err := registry.Resolve(name, caps)
				if err != nil {
					errs.Add(diag.Capability, imp.Span(), "%s", err)
					continue
				}
				resolved = append(resolved, res)
			}
			continue
		}
		name := moduleName(imp.Path)
		res, err := registry.Resolve(name, caps)
		if err != nil {
			kind := diag.Module
			if _, ok := registry.Module(name); ok {
				kind = diag.Capability
			}
			errs.Add(kind, imp.Span(), "%s", err)
			continue
		}
		resolved = append(resolved, res)
	}
	return resolved, errs
}

func moduleName(path []string) string {
	if len(path) == 0 {
		return ""
	}
	name := path[0]
	for _, p := range path[1:] {
		name += "." + p
	}
	return name
}

// installModules binds every resolved module's natives and constants into
// m ahead of execution.
func installModules(h *heap.Heap, m *vm.VM, resolved []*stdlib.Resolved) error {
	for _, res := range resolved {
		if err := stdlib.Install(h, res.Module, m.SetGlobal); err != nil {
			return fmt.Errorf("driver: %w", err)
		}
	}
	return nil
}
