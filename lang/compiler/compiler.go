// Package compiler lowers a typed, optimized AST (lang/ast + lang/sema's
// Program) into register bytecode (lang/bytecode) ready for lang/vm (spec
// §4.5). Grounded on the shape of the teacher's lang/compiler (a pcomp
// holding whole-program state, an fcomp holding per-function state, built
// bottom-up from a resolved AST) but the instruction stream itself is
// register-based and emitted linearly with backpatched jump offsets,
// rather than the teacher's CFG-of-blocks linearization pass: a register
// machine's forward/backward jumps are already concrete offsets at emission
// time, so there is no stack-depth bookkeeping left for a block linker to
// resolve.
package compiler

import (
	"fmt"

	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/types"
	"github.com/aelys-lang/aelys/lang/value"
)

// Error is a compile-time failure mode (spec §4.5): undefined variable,
// assignment to an immutable or loop-control binding, or a capacity
// overflow (arity, registers, constant pool).
type Error struct {
	Span token.Span
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Globals describes the program's known top-level bindings, resolved by
// name to a 16-bit index: Aelys functions declared at chunk scope and
// natives registered by the embedding driver (spec §4.5 "known globals",
// "known natives").
type Globals struct {
	Names   []string
	byName  map[string]int
	Natives map[string]bool
}

// NewGlobals builds a Globals table from an ordered name list; names also
// present in natives are marked as native globals rather than Aelys
// functions.
func NewGlobals(names []string, natives map[string]bool) *Globals {
	g := &Globals{Names: names, byName: map[string]int{}, Natives: natives}
	for i, n := range names {
		g.byName[n] = i
	}
	return g
}

func (g *Globals) index(name string) (int, bool) {
	i, ok := g.byName[name]
	return i, ok
}

// Compile compiles chunk's top-level statements into a single top-level
// Function, with every `fn`/lambda declaration compiled as a Nested
// function. prog supplies resolved types; globals supplies the program's
// known-global/known-native name tables.
func Compile(chunk *ast.Chunk, prog *sema.Program, globals *Globals, h *heap.Heap) (*bytecode.Function, []*Error) {
	pc := &pcomp{prog: prog, globals: globals, heap: h}
	fc := newFcomp(pc, nil, "main")
	fc.compileTopLevel(chunk.Block.Stmts)
	fc.finish()
	return fc.fn, pc.errs
}

// pcomp holds state shared across every fcomp in one compilation: the
// typed program, the known-global table, and the heap constants are
// interned into.
type pcomp struct {
	prog    *sema.Program
	globals *Globals
	heap    *heap.Heap
	errs    []*Error
}

func (pc *pcomp) errorf(span token.Span, format string, args ...any) {
	pc.errs = append(pc.errs, &Error{Span: span, Msg: fmt.Sprintf(format, args...)})
}

// localVar tracks one register-resident local binding within an fcomp.
type localVar struct {
	name string
	reg  uint8
	mut  bool
	// loopControl marks a for-loop's induction variable, which may not be
	// assigned to directly (spec §4.5 "assign to loop variable").
	loopControl bool
}

// loopCtx tracks the pending jump sites of the loop currently being
// compiled, patched once the loop's start/end addresses are known.
type loopCtx struct {
	breaks    []int // code indices of pending OpJmp placeholders
	continues []int
}

// fcomp holds the compiler state for one Function: its own register pool,
// lexical scope stack, loop context stack, and emitted instruction stream.
type fcomp struct {
	pc     *pcomp
	parent *fcomp
	fn     *bytecode.Function

	scopes   [][]localVar // stack of lexical scopes; each holds its locals
	nextReg  uint8
	peakReg  int
	loops    []*loopCtx
	upvalues map[string]uint8 // name -> upvalue index already installed
}

func newFcomp(pc *pcomp, parent *fcomp, name string) *fcomp {
	return &fcomp{
		pc:       pc,
		parent:   parent,
		fn:       &bytecode.Function{Name: name},
		scopes:   [][]localVar{{}},
		upvalues: map[string]uint8{},
	}
}

// declareParams installs sig's parameters as the function's first locals,
// occupying registers 0..arity-1 (the calling convention's argument
// registers, spec §4.8).
func (fc *fcomp) declareParams(sig *ast.FuncSignature) {
	if sig == nil {
		return
	}
	fc.fn.Arity = len(sig.Params)
	for _, p := range sig.Params {
		fc.declareLocal(p.Name.Lit, true)
	}
}

// beginScope pushes a new lexical scope (spec §4.5 begin_scope).
func (fc *fcomp) beginScope() {
	fc.scopes = append(fc.scopes, nil)
}

// endScope pops the current scope, releasing its registers back to the
// pool and closing any upvalues that referenced them (spec §4.5
// end_scope).
func (fc *fcomp) endScope() {
	top := fc.scopes[len(fc.scopes)-1]
	fc.scopes = fc.scopes[:len(fc.scopes)-1]
	if len(top) == 0 {
		return
	}
	lowest := top[0].reg
	fc.emit(bytecode.OpCloseUpvalues, lowest, 0, 0)
	fc.nextReg = lowest
}

// declareLocal allocates the next free register for name within the
// current scope.
func (fc *fcomp) declareLocal(name string, mut bool) uint8 {
	reg := fc.allocReg()
	top := len(fc.scopes) - 1
	fc.scopes[top] = append(fc.scopes[top], localVar{name: name, reg: reg, mut: mut})
	return reg
}

// allocReg hands out the lowest free register and updates peak usage
// (spec §4.5's 256-slot boolean pool; peak usage becomes NumRegisters).
func (fc *fcomp) allocReg() uint8 {
	if int(fc.nextReg) >= bytecode.MaxRegisters {
		fc.pc.errorf(token.Span{}, "function %q exceeds %d live registers", fc.fn.Name, bytecode.MaxRegisters)
		return fc.nextReg
	}
	r := fc.nextReg
	fc.nextReg++
	if int(fc.nextReg) > fc.peakReg {
		fc.peakReg = int(fc.nextReg)
	}
	return r
}

// allocBlock reserves n contiguous registers (spec §4.5's contiguous-block
// allocator for call sites).
func (fc *fcomp) allocBlock(n int) uint8 {
	if int(fc.nextReg)+n > bytecode.MaxRegisters {
		fc.pc.errorf(token.Span{}, "function %q exceeds %d live registers", fc.fn.Name, bytecode.MaxRegisters)
	}
	base := fc.nextReg
	fc.nextReg += uint8(n)
	if int(fc.nextReg) > fc.peakReg {
		fc.peakReg = int(fc.nextReg)
	}
	return base
}

// freeze truncates the register pool back to base, e.g. after a transient
// call-site block is no longer needed.
func (fc *fcomp) freeze(base uint8) { fc.nextReg = base }

func (fc *fcomp) finish() {
	fc.fn.NumRegisters = fc.peakReg
	fc.fn.CallSites = countCallSites(fc.fn.Code)
	names := fc.pc.globals.Names
	fc.fn.Globals = bytecode.GlobalLayout{Names: names, Hash: bytecode.HashLayout(names)}
}

func countCallSites(code []bytecode.Instr) int {
	n := 0
	for _, in := range code {
		if bytecode.IsCallOpcode(in.Op()) {
			n++
		}
	}
	return n
}

// emit appends one three-register-operand instruction and its source span.
func (fc *fcomp) emit(op bytecode.Opcode, a, b, c uint8) int {
	fc.fn.Code = append(fc.fn.Code, bytecode.ABC(op, a, b, c))
	fc.fn.Lines = append(fc.fn.Lines, token.Span{})
	return len(fc.fn.Code) - 1
}

func (fc *fcomp) emitAt(span token.Span, op bytecode.Opcode, a, b, c uint8) int {
	idx := fc.emit(op, a, b, c)
	fc.fn.Lines[idx] = span
	return idx
}

// emitImm appends an immediate-form instruction (register + 16-bit
// immediate).
func (fc *fcomp) emitImm(op bytecode.Opcode, a uint8, imm int16) int {
	fc.fn.Code = append(fc.fn.Code, bytecode.ABx(op, a, imm))
	fc.fn.Lines = append(fc.fn.Lines, token.Span{})
	return len(fc.fn.Code) - 1
}

// emitCacheWords appends the two placeholder cache words every call
// opcode reserves (spec §4.6).
func (fc *fcomp) emitCacheWords() {
	fc.fn.Code = append(fc.fn.Code, bytecode.CacheWord, bytecode.CacheWord)
	fc.fn.Lines = append(fc.fn.Lines, token.Span{}, token.Span{})
}

// here returns the index the next emitted instruction will occupy.
func (fc *fcomp) here() int { return len(fc.fn.Code) }

// patchJump rewrites the immediate of the OpJmp/OpJmpIfFalse/OpJmpIfTrue
// instruction at idx to jump to target, expressed as an offset from the
// instruction immediately following the jump.
func (fc *fcomp) patchJump(idx int, target int) {
	in := fc.fn.Code[idx]
	offset := target - (idx + 1)
	fc.fn.Code[idx] = bytecode.ABx(in.Op(), in.A(), int16(offset))
}

// addConstant interns v into the function's constant pool, returning its
// index (spec §4.5's 65 535-entry constant-pool overflow check).
func (fc *fcomp) addConstant(v value.Value) uint16 {
	if len(fc.fn.Constants) >= bytecode.MaxConstants {
		fc.pc.errorf(token.Span{}, "function %q exceeds %d constants", fc.fn.Name, bytecode.MaxConstants)
		return 0
	}
	fc.fn.Constants = append(fc.fn.Constants, v)
	return uint16(len(fc.fn.Constants) - 1)
}

// resolvedType looks up prog's resolved type for e, defaulting to Dynamic.
func (fc *fcomp) resolvedType(e ast.Expr) *types.ResolvedType {
	if fc.pc.prog == nil || fc.pc.prog.Types == nil {
		return types.ResolvedDynamic
	}
	if t, ok := fc.pc.prog.Types[e]; ok && t != nil {
		return t
	}
	return types.ResolvedDynamic
}
