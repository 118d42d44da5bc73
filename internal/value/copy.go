package value

// Copy returns a deep copy of v. Expansion splices copies of definition
// bodies so that no two files ever share value nodes.
func Copy(v Value) Value {
	switch t := v.(type) {
	case *None:
		c := *t
		return &c
	case *Bool:
		c := *t
		return &c
	case *Number:
		c := *t
		return &c
	case *String:
		c := *t
		return &c
	case *Array:
		c := *t
		c.Elems = copySlice(t.Elems)
		return &c
	case *Tuple:
		c := *t
		c.Elems = copySlice(t.Elems)
		return &c
	case *Map:
		c := *t
		c.Entries = make([]MapEntry, len(t.Entries))
		for i, e := range t.Entries {
			e.Val = Copy(e.Val)
			c.Entries[i] = e
		}
		return &c
	case *Variant:
		c := *t
		if t.Payload != nil {
			c.Payload = copySlice(t.Payload)
		}
		return &c
	case *Builtin:
		c := *t
		c.Payload = Copy(t.Payload)
		return &c
	case *Instr:
		return CopyInstr(t)
	case *Ref:
		c := *t
		if t.Args != nil {
			c.Args = make([]Arg, len(t.Args))
			for i, a := range t.Args {
				a.Val = Copy(a.Val)
				c.Args[i] = a
			}
		}
		return &c
	default:
		return v
	}
}

// CopyInstr deep-copies an instruction, keeping its concrete type.
func CopyInstr(in *Instr) *Instr {
	c := *in
	c.Generics = append([]string(nil), in.Generics...)
	c.Fields = make([]Field, len(in.Fields))
	for i, f := range in.Fields {
		f.Val = Copy(f.Val)
		c.Fields[i] = f
	}
	return &c
}

// WithFill returns a shallow-rebuilt copy of v whose leading fill is
// replaced. Substitution uses it so spliced values adopt the call site's
// surrounding whitespace instead of the definition's.
func WithFill(v Value, fill string) Value {
	c := Copy(v)
	switch t := c.(type) {
	case *None:
		t.Fill = fill
	case *Bool:
		t.Fill = fill
	case *Number:
		t.Fill = fill
	case *String:
		t.Fill = fill
	case *Array:
		t.Fill = fill
	case *Tuple:
		t.Fill = fill
	case *Map:
		t.Fill = fill
	case *Variant:
		t.Fill = fill
	case *Builtin:
		t.Fill = fill
	case *Instr:
		t.Fill = fill
	case *Ref:
		t.Fill = fill
	}
	return c
}

func copySlice(vs []Value) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Copy(v)
	}
	return out
}
