// Package ctyconv converts fully-resolved COB values into cty values so a
// go-cty-speaking scene builder can consume ResolvedFiles without knowing
// the value union. Conversion is only defined for resolved data: a
// surviving reference is a bug in the caller and returns an error.
package ctyconv

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/resolve"
	"github.com/coblang/cob/internal/value"
)

// Value recursively converts a resolved value to its cty counterpart.
// Composites become tuples and objects; variants, builtins, and
// instructions become tagged objects.
func Value(v value.Value) (cty.Value, error) {
	switch t := v.(type) {
	case *value.None:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case *value.Bool:
		return cty.BoolVal(t.V), nil
	case *value.Number:
		return cty.NumberFloatVal(t.V), nil
	case *value.String:
		return cty.StringVal(t.V), nil
	case *value.Array:
		return tupleOf(t.Elems)
	case *value.Tuple:
		return tupleOf(t.Elems)
	case *value.Map:
		attrs := make(map[string]cty.Value, len(t.Entries))
		for _, e := range t.Entries {
			cv, err := Value(e.Val)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in map key %q: %w", e.Key, err)
			}
			attrs[e.Key] = cv
		}
		return objectOf(attrs), nil
	case *value.Variant:
		payload := cty.EmptyTupleVal
		if len(t.Payload) > 0 {
			var err error
			payload, err = tupleOf(t.Payload)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in variant %s: %w", t.Name, err)
			}
		}
		return cty.ObjectVal(map[string]cty.Value{
			"variant": cty.StringVal(t.Name),
			"payload": payload,
		}), nil
	case *value.Builtin:
		payload, err := Value(t.Payload)
		if err != nil {
			return cty.NilVal, fmt.Errorf("in builtin @%s: %w", t.Type, err)
		}
		return cty.ObjectVal(map[string]cty.Value{
			"builtin": cty.StringVal(t.Type),
			"payload": payload,
		}), nil
	case *value.Instr:
		return Instr(t)
	case *value.Ref:
		ref := t.Name
		if t.Alias != "" {
			ref = t.Alias + "." + t.Name
		}
		return cty.NilVal, fmt.Errorf("unresolved reference %q leaked into resolved output", ref)
	default:
		return cty.NilVal, fmt.Errorf("unsupported value kind %T", v)
	}
}

// Instr converts a resolved instruction to an object carrying its type
// identifier, generic arguments, and field values.
func Instr(in *value.Instr) (cty.Value, error) {
	fields := make(map[string]cty.Value, len(in.Fields))
	for _, f := range in.Fields {
		cv, err := Value(f.Val)
		if err != nil {
			return cty.NilVal, fmt.Errorf("in %s field %q: %w", in.Type, f.Name, err)
		}
		fields[f.Name] = cv
	}
	generics := cty.EmptyTupleVal
	if len(in.Generics) > 0 {
		elems := make([]cty.Value, len(in.Generics))
		for i, g := range in.Generics {
			elems[i] = cty.StringVal(g)
		}
		generics = cty.TupleVal(elems)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"type":     cty.StringVal(in.Type),
		"generics": generics,
		"fields":   objectOf(fields),
	}), nil
}

// Node converts a resolved scene node, including its subtree.
func Node(n *ast.SceneNode) (cty.Value, error) {
	instrs := make([]cty.Value, 0, len(n.Instrs))
	for _, in := range n.Instrs {
		cv, err := Instr(in)
		if err != nil {
			return cty.NilVal, fmt.Errorf("in node %q: %w", n.Name, err)
		}
		instrs = append(instrs, cv)
	}
	children := make([]cty.Value, 0, len(n.Children))
	for _, child := range n.Children {
		cv, err := Node(child)
		if err != nil {
			return cty.NilVal, err
		}
		children = append(children, cv)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"name":         cty.StringVal(n.Name),
		"instructions": tupleVals(instrs),
		"children":     tupleVals(children),
	}), nil
}

// Resolved converts a whole ResolvedFile.
func Resolved(rf *resolve.ResolvedFile) (cty.Value, error) {
	commands := make([]cty.Value, 0, len(rf.Commands))
	for _, in := range rf.Commands {
		cv, err := Instr(in)
		if err != nil {
			return cty.NilVal, err
		}
		commands = append(commands, cv)
	}
	scenes := make([]cty.Value, 0, len(rf.Scenes))
	for _, n := range rf.Scenes {
		cv, err := Node(n)
		if err != nil {
			return cty.NilVal, err
		}
		scenes = append(scenes, cv)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"path":     cty.StringVal(rf.Path),
		"commands": tupleVals(commands),
		"scenes":   tupleVals(scenes),
	}), nil
}

func tupleOf(elems []value.Value) (cty.Value, error) {
	out := make([]cty.Value, len(elems))
	for i, e := range elems {
		cv, err := Value(e)
		if err != nil {
			return cty.NilVal, err
		}
		out[i] = cv
	}
	return tupleVals(out), nil
}

func tupleVals(vals []cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(vals)
}

func objectOf(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}
