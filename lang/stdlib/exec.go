package stdlib

import (
	"os/exec"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// execModule is the representative subprocess module behind the "exec"
// capability: running a command and capturing its combined output.
func execModule() *Module {
	return &Module{
		Name:       "exec",
		Capability: CapExec,
		Funcs: []Func{
			{Name: "run", Arity: 1, Capability: CapExec, Fn: func(h *heap.Heap, args []value.Value) (value.Value, error) {
				cmdline, err := wantString(h, args, 0)
				if err != nil {
					return value.Value{}, err
				}
				out, err := exec.Command("/bin/sh", "-c", cmdline).CombinedOutput()
				if err != nil {
					if _, ok := err.(*exec.ExitError); !ok {
						return value.Value{}, err
					}
				}
				return h.InternString(string(out))
			}},
		},
	}
}
