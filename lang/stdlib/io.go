package stdlib

import (
	"fmt"
	"os"

	"github.com/chzyer/readline"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// Display renders v as program output, dereferencing heap strings to their
// content rather than a ptr(n) placeholder; every other kind falls back to
// value.Value.String.
func Display(h *heap.Heap, v value.Value) string {
	if ref, ok := v.AsPtr(); ok {
		if obj, err := h.Get(ref); err == nil && obj.Kind == heap.KindString {
			return obj.Str
		}
	}
	return v.String()
}

// ioModule implements the runtime-exposed I/O builtins (spec §6): print,
// println, eprint, eprintln, readline.
func ioModule() *Module {
	return &Module{
		Name: "io",
		Funcs: []Func{
			{Name: "print", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				fmt.Fprint(os.Stdout, Display(h, args[0]))
				return value.Null, nil
			}},
			{Name: "println", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				fmt.Fprintln(os.Stdout, Display(h, args[0]))
				return value.Null, nil
			}},
			{Name: "eprint", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				fmt.Fprint(os.Stderr, Display(h, args[0]))
				return value.Null, nil
			}},
			{Name: "eprintln", Arity: 1, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				fmt.Fprintln(os.Stderr, Display(h, args[0]))
				return value.Null, nil
			}},
			{Name: "readline", Arity: 1, Fn: nativeReadline},
		},
	}
}

// nativeReadline prompts on stdout and reads one line from stdin via
// chzyer/readline, returning its content as an interned string, or null on
// EOF/interrupt (spec §6 lists readline among the runtime-exposed
// builtins; a fresh *readline.Instance per call keeps the native
// stateless, matching how print/println are stateless).
func nativeReadline(h *heap.Heap, args []value.Value) (value.Value, error) {
	prompt, err := wantString(h, args, 0)
	if err != nil {
		return value.Value{}, err
	}
	rl, err := readline.New(prompt)
	if err != nil {
		return value.Value{}, fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	line, err := rl.Readline()
	if err != nil {
		return value.Null, nil
	}
	return h.InternString(line)
}
