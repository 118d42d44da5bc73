package value

// Equal reports semantic equality of two values, ignoring fill and source
// spans. Map entries compare as keyed sets; their order is irrelevant.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case *None:
		_, ok := b.(*None)
		return ok
	case *Bool:
		bv, ok := b.(*Bool)
		return ok && av.V == bv.V
	case *Number:
		bv, ok := b.(*Number)
		return ok && av.V == bv.V
	case *String:
		bv, ok := b.(*String)
		return ok && av.V == bv.V
	case *Array:
		bv, ok := b.(*Array)
		return ok && equalSlices(av.Elems, bv.Elems)
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && equalSlices(av.Elems, bv.Elems)
	case *Map:
		bv, ok := b.(*Map)
		if !ok || len(av.Entries) != len(bv.Entries) {
			return false
		}
		byKey := make(map[string]Value, len(bv.Entries))
		for _, e := range bv.Entries {
			byKey[e.Key] = e.Val
		}
		for _, e := range av.Entries {
			other, ok := byKey[e.Key]
			if !ok || !Equal(e.Val, other) {
				return false
			}
		}
		return true
	case *Variant:
		bv, ok := b.(*Variant)
		if !ok || av.Name != bv.Name {
			return false
		}
		if (av.Payload == nil) != (bv.Payload == nil) {
			return false
		}
		return equalSlices(av.Payload, bv.Payload)
	case *Builtin:
		bv, ok := b.(*Builtin)
		return ok && av.Type == bv.Type && Equal(av.Payload, bv.Payload)
	case *Instr:
		bv, ok := b.(*Instr)
		if !ok || av.Type != bv.Type || len(av.Generics) != len(bv.Generics) || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i, g := range av.Generics {
			if g != bv.Generics[i] {
				return false
			}
		}
		for i, f := range av.Fields {
			if f.Name != bv.Fields[i].Name || !Equal(f.Val, bv.Fields[i].Val) {
				return false
			}
		}
		return true
	case *Ref:
		bv, ok := b.(*Ref)
		if !ok || av.Alias != bv.Alias || av.Name != bv.Name {
			return false
		}
		if (av.Args == nil) != (bv.Args == nil) || len(av.Args) != len(bv.Args) {
			return false
		}
		for i, arg := range av.Args {
			if arg.Name != bv.Args[i].Name || !Equal(arg.Val, bv.Args[i].Val) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
