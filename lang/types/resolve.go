package types

// Resolve converts a (substituted) InferType into the defensive
// ResolvedType the backend consumes (spec §3): unresolved variables become
// Dynamic. It never itself introduces Uncertain, and the sema package does
// not mark it either: MakeUncertain is the only way to obtain an Uncertain
// type, and nothing in the pipeline calls it.
func Resolve(t *InferType) *ResolvedType {
	if t == nil || t.IsVar() {
		return ResolvedDynamic
	}
	switch t.Kind {
	case KindDynamic:
		return ResolvedDynamic
	case KindFunction:
		params := make([]*ResolvedType, len(t.Params))
		for i, p := range t.Params {
			params[i] = Resolve(p)
		}
		return &ResolvedType{Kind: KindFunction, Params: params, Result: Resolve(t.Result)}
	case KindArray, KindVec:
		return &ResolvedType{Kind: t.Kind, Elem: Resolve(t.Elem)}
	case KindStruct:
		return &ResolvedType{Kind: KindStruct, Name: t.Name}
	default:
		return &ResolvedType{Kind: t.Kind}
	}
}
