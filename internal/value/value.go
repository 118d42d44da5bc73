// Package value defines the typed value and instruction grammar shared by
// the parser and the resolvers. Value is a closed sum; every consumer
// switches exhaustively on the concrete types, so adding a kind is a
// compile-time exercise.
package value

import "github.com/hashicorp/hcl/v2"

// Meta carries the source span and leading fill for a value node. Fill is
// whitespace and comments preceding the node's first token; it is used only
// for re-serialization, never for semantic comparison.
type Meta struct {
	Fill string
	Rng  hcl.Range
}

func (m Meta) Range() hcl.Range { return m.Rng }
func (m Meta) LeadFill() string { return m.Fill }

// Value is the closed union of COB value kinds.
type Value interface {
	Range() hcl.Range
	LeadFill() string
	isValue()
}

// None is the absent value, written `none`.
type None struct{ Meta }

// Bool is `true` or `false`.
type Bool struct {
	Meta
	V bool
}

// Number is a decimal literal. Raw preserves the source spelling for
// re-serialization; V is the parsed magnitude.
type Number struct {
	Meta
	Raw string
	V   float64
}

// String is a double-quoted literal, stored decoded.
type String struct {
	Meta
	V string
}

// Array is `[v, ...]`.
type Array struct {
	Meta
	Elems []Value
}

// Tuple is `(v, ...)`. A parenthesised single value without a trailing
// comma is grouping and never produces a Tuple.
type Tuple struct {
	Meta
	Elems []Value
}

// MapEntry is one `key: value` pair of a Map.
type MapEntry struct {
	Fill     string
	KeyRange hcl.Range
	Key      string
	Val      Value
}

// Map is `{key: v, ...}`. Keys are unique; entry order is preserved for
// serialization and irrelevant for equality.
type Map struct {
	Meta
	Entries []MapEntry
}

// Variant is an enum variant: `Name` or `Name(payload...)`. A nil Payload
// means the bare form; a non-nil empty Payload cannot occur (empty
// parentheses parse as an Instr).
type Variant struct {
	Meta
	Name    string
	Payload []Value
}

// Builtin is a host-defined opaque scalar, written `@type(payload)`. The
// payload is a single literal; the core never interprets it.
type Builtin struct {
	Meta
	Type    string
	Payload Value
}

// Field is one `name: value` pair of an Instr.
type Field struct {
	Fill      string
	NameRange hcl.Range
	Name      string
	Val       Value
}

// Instr is a loadable instruction: `Type(field: v, ...)`, optionally with
// generic arguments `Type<Pascal, ...>(...)`.
type Instr struct {
	Meta
	Type     string
	Generics []string
	Fields   []Field
}

// Arg is one invocation argument: positional when Name is empty, named
// otherwise.
type Arg struct {
	Fill      string
	Name      string
	NameRange hcl.Range
	Val       Value
}

// Ref is a constant or macro reference by bare name, optionally qualified
// with an import alias and optionally invoked with arguments. A nil Args
// distinguishes a bare reference from a zero-argument call. Refs never
// survive resolution; a ResolvedFile contains none.
type Ref struct {
	Meta
	Alias string
	Name  string
	Args  []Arg
}

func (*None) isValue()    {}
func (*Bool) isValue()    {}
func (*Number) isValue()  {}
func (*String) isValue()  {}
func (*Array) isValue()   {}
func (*Tuple) isValue()   {}
func (*Map) isValue()     {}
func (*Variant) isValue() {}
func (*Builtin) isValue() {}
func (*Instr) isValue()   {}
func (*Ref) isValue()     {}
