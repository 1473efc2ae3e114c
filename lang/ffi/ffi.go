// Package ffi implements the foreign-function interface surface described
// in spec §4.10: foreign modules are loaded by name via an external
// resolver, each exposing a descriptor of exports (function, constant, or
// type) plus an optional init hook, validated against a manifest's
// checksum and capability list before anything is installed. The dynamic
// loader itself (resolving a module name to a shared object / plugin on
// disk) is out of scope (SPEC_FULL §D); Resolver is the seam a host
// embeds one behind.
package ffi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/stdlib"
	"github.com/aelys-lang/aelys/lang/value"
)

// ExportKind discriminates what an Export installs as.
type ExportKind uint8

const (
	ExportFunction ExportKind = iota
	ExportConstant
	ExportType
)

// Export is one symbol a foreign module makes available (spec §4.10:
// "name, kind, arity, value pointer"). Function exports install as Native
// heap objects; Constant exports install as globals; Type exports are
// recorded but carry no runtime value (the core VM has no user-defined
// type objects to attach them to).
type Export struct {
	Name     string
	Kind     ExportKind
	Arity    int
	Variadic bool
	Fn       func(args []value.Value) (value.Value, error) // ExportFunction
	Value    value.Value                                    // ExportConstant
}

// API is the capability table passed to a module's Init hook (spec
// §4.10's "an init hook called with a VM-API capability table"): the
// minimal surface a foreign module needs to allocate heap values of its
// own during initialization.
type API struct {
	Heap *heap.Heap
}

// Descriptor is what a Resolver returns for one foreign module: its
// exports, declared capability, content checksum, and optional
// initializer.
type Descriptor struct {
	Name       string
	Checksum   string // sha256 hex of the module's defining content
	Capability stdlib.Capability
	Exports    []Export
	Init       func(API) error
}

// Resolver loads a foreign module by name. The out-of-scope dynamic-loader
// mechanism lives behind whatever concrete Resolver a host supplies;
// ffi itself only validates and installs what comes back.
type Resolver interface {
	Resolve(name string) (*Descriptor, error)
}

// ManifestEntry is one module's expected checksum and allowed capability,
// the record a Descriptor is validated against before load (spec §4.10:
// "a checksum and capability list per module are validated against the
// manifest before load").
type ManifestEntry struct {
	Checksum   string
	Capability stdlib.Capability
}

// Manifest maps module name to its expected entry.
type Manifest map[string]ManifestEntry

// Checksum computes the manifest-comparable checksum of raw module
// content (e.g. a module's source or a serialized descriptor), sha256 hex
// encoded.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Load resolves name via r, validates it against manifest and caps, and
// returns the descriptor ready for Install. It never installs anything —
// mirrors stdlib.Registry.Resolve's separation between "permitted" and
// "installed" so the driver can report a capability-denied or
// checksum-mismatch compile error (diag.Capability / diag.Checksum)
// before doing any heap work.
func Load(r Resolver, name string, manifest Manifest, caps stdlib.Capabilities) (*Descriptor, error) {
	entry, ok := manifest[name]
	if !ok {
		return nil, fmt.Errorf("module %q has no manifest entry", name)
	}
	desc, err := r.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", name, err)
	}
	if desc.Checksum != entry.Checksum {
		return nil, fmt.Errorf("module %q: checksum mismatch (manifest %s, got %s)", name, entry.Checksum, desc.Checksum)
	}
	if desc.Capability != entry.Capability {
		return nil, fmt.Errorf("module %q: capability %q does not match manifest %q", name, desc.Capability, entry.Capability)
	}
	if !caps.Allows(desc.Capability) {
		return nil, fmt.Errorf("module %q requires capability %q", name, desc.Capability)
	}
	return desc, nil
}

// Install installs every export of desc into the VM via set, running
// Init first (spec §4.10: function exports become Native heap objects,
// constants become globals).
func Install(h *heap.Heap, desc *Descriptor, set func(name string, v value.Value) error) error {
	if desc.Init != nil {
		if err := desc.Init(API{Heap: h}); err != nil {
			return fmt.Errorf("init %q: %w", desc.Name, err)
		}
	}
	for _, exp := range desc.Exports {
		qualified := desc.Name + "::" + exp.Name
		switch exp.Kind {
		case ExportFunction:
			v, err := h.NewNative(&heap.NativeFunc{
				QualifiedName: qualified,
				Arity:         exp.Arity,
				Variadic:      exp.Variadic,
				Fn:            exp.Fn,
			})
			if err != nil {
				return fmt.Errorf("install %s: %w", qualified, err)
			}
			if err := set(qualified, v); err != nil {
				return err
			}
		case ExportConstant:
			if err := set(qualified, exp.Value); err != nil {
				return err
			}
		case ExportType:
			// recorded via the manifest/descriptor only; no runtime value.
		default:
			return fmt.Errorf("export %s: unknown kind %d", qualified, exp.Kind)
		}
	}
	return nil
}

// QualifiedNatives returns every "module::name" this descriptor's function
// exports register under, for the same known-global specialization the
// compiler applies to stdlib natives.
func (d *Descriptor) QualifiedNatives() []string {
	var names []string
	for _, exp := range d.Exports {
		if exp.Kind == ExportFunction {
			names = append(names, d.Name+"::"+exp.Name)
		}
	}
	return names
}
