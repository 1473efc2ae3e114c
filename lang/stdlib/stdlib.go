// Package stdlib implements the native-function registry described in spec
// §4.9: modules of natives attached to the VM by qualified name
// (module::name), with filesystem/network/exec modules gated behind a
// capability set. Grounded on the teacher's universe.go (lang/machine),
// which built the same kind of fixed, always-present builtin table; adapted
// from a flat name->func map into qualified modules since Aelys natives are
// namespaced and individually capability-gated.
package stdlib

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// Capability is a named permission the VM consults before registering or
// invoking a native function that requires it (spec §4.9, glossary).
type Capability string

const (
	CapFS   Capability = "fs"
	CapNet  Capability = "net"
	CapExec Capability = "exec"
)

// Capabilities is the set of permissions a program invocation was granted
// (spec §6's allow_fs/allow_net/allow_exec flags plus a trusted flag that
// enables all of them).
type Capabilities struct {
	Trusted bool
	Fs      bool
	Net     bool
	Exec    bool
}

// Allows reports whether cap is granted. An empty Capability (natives with
// no protected category) is always allowed.
func (c Capabilities) Allows(cap Capability) bool {
	if c.Trusted || cap == "" {
		return true
	}
	switch cap {
	case CapFS:
		return c.Fs
	case CapNet:
		return c.Net
	case CapExec:
		return c.Exec
	default:
		return false
	}
}

// Func is one native's implementation, registered under a qualified name.
type Func struct {
	Name       string // unqualified, e.g. "print"
	Arity      int
	Variadic   bool
	Capability Capability // "" if unrestricted
	Fn         func(h *heap.Heap, args []value.Value) (value.Value, error)
}

// Module is a named group of natives plus any Aelys-visible constants
// (spec §6's "constant exports are installed as globals" applied to
// stdlib, not just FFI, modules).
type Module struct {
	Name      string
	Capability Capability
	Funcs     []Func
	Consts    map[string]value.Value
}

// Registry holds every module the driver may register, keyed by name.
type Registry struct {
	modules map[string]*Module
}

// NewRegistry builds the standard registry: io, math, fs, net, exec (spec
// §6's builtin list plus SPEC_FULL's representative fs/net/exec/math
// modules).
func NewRegistry() *Registry {
	r := &Registry{modules: make(map[string]*Module)}
	r.register(ioModule())
	r.register(mathModule())
	r.register(fsModule())
	r.register(netModule())
	r.register(execModule())
	return r
}

func (r *Registry) register(m *Module) { r.modules[m.Name] = m }

// Module looks up a registered module by name.
func (r *Registry) Module(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns every registered module name, sorted for deterministic
// iteration (diagnostics and `needs *` wildcard expansion both want a
// stable order).
func (r *Registry) Names() []string {
	names := maps.Keys(r.modules)
	slices.Sort(names)
	return names
}

// Resolved is one module successfully checked against a capability set and
// ready for installation into a VM.
type Resolved struct {
	Module *Module
}

// Resolve looks up name, verifies its capability is granted by caps, and
// returns it ready for installation. It never installs anything itself —
// that's the driver's job once every `needs` clause in a program has been
// resolved — so a denial at this stage is a pure compile-time check.
func (r *Registry) Resolve(name string, caps Capabilities) (*Resolved, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("module %q not found", name)
	}
	if !caps.Allows(m.Capability) {
		return nil, fmt.Errorf("module %q requires capability %q", name, m.Capability)
	}
	return &Resolved{Module: m}, nil
}

// QualifiedNatives returns every "module::name" this resolved module's
// native functions register under, the list the compiler specializes
// known-global call sites on (spec §6's "a list of qualified native
// function names the backend may specialize on").
func (res *Resolved) QualifiedNatives() []string {
	names := make([]string, len(res.Module.Funcs))
	for i, f := range res.Module.Funcs {
		names[i] = res.Module.Name + "::" + f.Name
	}
	return names
}

// Install allocates a Native heap object for every function in m and binds
// it, plus every constant, into vm by calling set for each qualified name.
func Install(h *heap.Heap, m *Module, set func(name string, v value.Value) error) error {
	for _, f := range m.Funcs {
		qualified := m.Name + "::" + f.Name
		fn := f.Fn
		native := &heap.NativeFunc{
			QualifiedName: qualified,
			Arity:         f.Arity,
			Variadic:      f.Variadic,
			Fn: func(args []value.Value) (value.Value, error) {
				return fn(h, args)
			},
		}
		v, err := h.NewNative(native)
		if err != nil {
			return fmt.Errorf("install %s: %w", qualified, err)
		}
		if err := set(qualified, v); err != nil {
			return fmt.Errorf("install %s: %w", qualified, err)
		}
	}
	for name, v := range m.Consts {
		if err := set(m.Name+"::"+name, v); err != nil {
			return fmt.Errorf("install %s::%s: %w", m.Name, name, err)
		}
	}
	return nil
}

func wantInt(args []value.Value, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("argument %d missing", i)
	}
	n, ok := args[i].AsInt()
	if !ok {
		return 0, fmt.Errorf("argument %d: expected int, got %s", i, args[i].Kind())
	}
	return n, nil
}

func wantString(h *heap.Heap, args []value.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("argument %d missing", i)
	}
	ref, ok := args[i].AsPtr()
	if !ok {
		return "", fmt.Errorf("argument %d: expected string, got %s", i, args[i].Kind())
	}
	obj, err := h.Get(ref)
	if err != nil {
		return "", err
	}
	if obj.Kind != heap.KindString {
		return "", fmt.Errorf("argument %d: expected string, got %s", i, obj.Kind)
	}
	return obj.Str, nil
}
