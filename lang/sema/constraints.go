package sema

import (
	"fmt"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/types"
)

// ConstraintKind discriminates the two constraint forms generated during
// inference (spec §4.3).
type ConstraintKind uint8

const (
	CEqual ConstraintKind = iota
	COneOf
)

// Constraint is one unit of inference obligation, generated during a
// single AST traversal and solved afterward.
type Constraint struct {
	Kind       ConstraintKind
	A, B       *types.InferType // used by CEqual
	T          *types.InferType // used by COneOf
	Candidates []types.Kind     // used by COneOf ("numeric", "integer")
	Reason     string
	Span       token.Span
}

// Solver performs union-find-based unification with an occurs check;
// Dynamic short-circuits both (spec §4.3).
type Solver struct {
	subst map[types.TyVar]*types.InferType
	errs  *diag.List
}

func NewSolver(errs *diag.List) *Solver {
	return &Solver{subst: make(map[types.TyVar]*types.InferType), errs: errs}
}

// prune follows the substitution chain for t until it reaches a
// non-variable or unbound variable.
func (s *Solver) prune(t *types.InferType) *types.InferType {
	for t != nil && t.IsVar() {
		next, ok := s.subst[t.Var]
		if !ok {
			return t
		}
		t = next
	}
	return t
}

// occurs reports whether variable v appears anywhere inside t (after
// pruning), which would make a binding v := t circular.
func (s *Solver) occurs(v types.TyVar, t *types.InferType) bool {
	t = s.prune(t)
	if t == nil {
		return false
	}
	if t.IsVar() {
		return t.Var == v
	}
	if s.occurs(v, t.Elem) {
		return true
	}
	if s.occurs(v, t.Result) {
		return true
	}
	for _, p := range t.Params {
		if s.occurs(v, p) {
			return true
		}
	}
	return false
}

func (s *Solver) bind(v types.TyVar, t *types.InferType) error {
	if s.occurs(v, t) {
		return fmt.Errorf("circular type: 't%d occurs in %v", v, t)
	}
	s.subst[v] = t
	return nil
}

// Unify unifies a and b, short-circuiting whenever either side is Dynamic.
func (s *Solver) Unify(a, b *types.InferType) error {
	a, b = s.prune(a), s.prune(b)
	if a == nil || b == nil {
		return nil
	}
	if a.Kind == types.KindDynamic || b.Kind == types.KindDynamic {
		return nil
	}
	if a.IsVar() {
		return s.bind(a.Var, b)
	}
	if b.IsVar() {
		return s.bind(b.Var, a)
	}
	if a.Kind != b.Kind {
		return fmt.Errorf("type mismatch: %v vs %v", a, b)
	}
	switch a.Kind {
	case types.KindArray, types.KindVec:
		return s.Unify(a.Elem, b.Elem)
	case types.KindFunction:
		if len(a.Params) != len(b.Params) {
			return fmt.Errorf("arity mismatch: %d vs %d", len(a.Params), len(b.Params))
		}
		for i := range a.Params {
			if err := s.Unify(a.Params[i], b.Params[i]); err != nil {
				return err
			}
		}
		return s.Unify(a.Result, b.Result)
	case types.KindStruct:
		if a.Name != b.Name {
			return fmt.Errorf("type mismatch: struct %s vs %s", a.Name, b.Name)
		}
	}
	return nil
}

// Solve applies every constraint in order, reporting failures as diagnostic
// errors via the Solver's diag.List and continuing (gradual typing:
// a single bad constraint should not halt the whole pass).
func (s *Solver) Solve(cs []Constraint) {
	for _, c := range cs {
		switch c.Kind {
		case CEqual:
			if err := s.Unify(c.A, c.B); err != nil {
				s.errs.Add(diag.Type, c.Span, "%s: %s", c.Reason, err)
			}
		case COneOf:
			t := s.prune(c.T)
			if t.IsVar() || t.Kind == types.KindDynamic {
				continue
			}
			ok := false
			for _, k := range c.Candidates {
				if t.Kind == k {
					ok = true
					break
				}
			}
			if !ok {
				s.errs.Add(diag.Type, c.Span, "%s: %v is not one of %v", c.Reason, t, c.Candidates)
			}
		}
	}
}

// Resolve substitutes t fully and converts it to the defensive
// ResolvedType form (spec §3).
func (s *Solver) Resolve(t *types.InferType) *types.ResolvedType {
	return types.Resolve(s.substituteDeep(t))
}

func (s *Solver) substituteDeep(t *types.InferType) *types.InferType {
	t = s.prune(t)
	if t == nil || t.IsVar() {
		return types.Dynamic
	}
	switch t.Kind {
	case types.KindArray, types.KindVec:
		return types.Collection(t.Kind, s.substituteDeep(t.Elem))
	case types.KindFunction:
		params := make([]*types.InferType, len(t.Params))
		for i, p := range t.Params {
			params[i] = s.substituteDeep(p)
		}
		return types.Func(params, s.substituteDeep(t.Result))
	default:
		return t
	}
}
