// Package expand performs constant/macro and scene-macro expansion.
// Expansion is depth-first substitution guarded by a call stack of
// (name, file) frames: revisiting a frame is a cyclic-expansion error and
// exceeding MaxDepth frames is a runaway-expansion error, both reported
// with the full chain.
package expand

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/extract"
	"github.com/coblang/cob/internal/value"
)

// MaxDepth caps the expansion call stack.
const MaxDepth = 64

// Scope resolves names visible from a file. The `from` argument is the
// file whose namespace the reference appears in, so that an imported
// definition's own body resolves against its defining file. Lookups read
// live tables; nothing is snapshotted across calls.
type Scope interface {
	Const(from, alias, name string) (extract.Const, string, bool)
	Macro(from, alias, name string) (extract.Macro, string, bool)
	SceneMacro(from, alias, name string) (extract.SceneMacro, string, bool)
}

type frame struct {
	name string
	path string
}

func (f frame) String() string { return f.name + "@" + f.path }

// Expander expands one file's values and scenes. It is single-use per
// resolution attempt; the zero stack is reused across top-level items.
type Expander struct {
	scope Scope
	stack []frame
}

// New returns an Expander over the given scope.
func New(scope Scope) *Expander { return &Expander{scope: scope} }

// Value returns v with every reference expanded to a concrete value.
// params is the parameter binding of the innermost macro being
// instantiated, nil at top level.
func (x *Expander) Value(path string, params map[string]value.Value, v value.Value) (value.Value, *diag.Error) {
	switch t := v.(type) {
	case *value.None, *value.Bool, *value.Number, *value.String, *value.Builtin:
		return v, nil
	case *value.Array:
		elems, err := x.values(path, params, t.Elems)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Elems = elems
		return &c, nil
	case *value.Tuple:
		elems, err := x.values(path, params, t.Elems)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Elems = elems
		return &c, nil
	case *value.Map:
		c := *t
		c.Entries = make([]value.MapEntry, len(t.Entries))
		for i, e := range t.Entries {
			ev, err := x.Value(path, params, e.Val)
			if err != nil {
				return nil, err
			}
			e.Val = ev
			c.Entries[i] = e
		}
		return &c, nil
	case *value.Variant:
		if t.Payload == nil {
			return v, nil
		}
		payload, err := x.values(path, params, t.Payload)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Payload = payload
		return &c, nil
	case *value.Instr:
		c := *t
		c.Fields = make([]value.Field, len(t.Fields))
		for i, f := range t.Fields {
			fv, err := x.Value(path, params, f.Val)
			if err != nil {
				return nil, err
			}
			f.Val = fv
			c.Fields[i] = f
		}
		return &c, nil
	case *value.Ref:
		return x.ref(path, params, t)
	default:
		return nil, diag.New(diag.UnresolvedReference, v.Range(), "unsupported value kind %T", v)
	}
}

func (x *Expander) values(path string, params map[string]value.Value, vs []value.Value) ([]value.Value, *diag.Error) {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		ev, err := x.Value(path, params, v)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

func (x *Expander) ref(path string, params map[string]value.Value, r *value.Ref) (value.Value, *diag.Error) {
	if r.Alias == "" {
		if pv, ok := params[r.Name]; ok {
			if r.Args != nil {
				return nil, diag.New(diag.UnresolvedReference, r.Rng, "parameter %q holds a value and cannot be invoked", r.Name)
			}
			return value.WithFill(pv, r.Fill), nil
		}
	}

	if c, defPath, ok := x.scope.Const(path, r.Alias, r.Name); ok {
		if r.Args != nil {
			return nil, diag.New(diag.UnresolvedReference, r.Rng, "%q is a constant and does not take arguments", r.Name)
		}
		if err := x.push(r.Name, defPath, r.Rng); err != nil {
			return nil, err
		}
		out, err := x.Value(defPath, nil, c.Val)
		x.pop()
		if err != nil {
			return nil, err
		}
		return value.WithFill(out, r.Fill), nil
	}

	if m, defPath, ok := x.scope.Macro(path, r.Alias, r.Name); ok {
		if r.Args == nil {
			return nil, diag.New(diag.UnboundParameter, r.Rng, "macro %q requires an argument list", r.Name)
		}
		bound, err := x.bindArgs(path, params, m.Params, r.Args, r.Rng, r.Name)
		if err != nil {
			return nil, err
		}
		if err := x.push(r.Name, defPath, r.Rng); err != nil {
			return nil, err
		}
		out, err := x.Value(defPath, bound, m.Body)
		x.pop()
		if err != nil {
			return nil, err
		}
		return value.WithFill(out, r.Fill), nil
	}

	return nil, x.unresolved(r.Rng, r.Alias, r.Name)
}

// Scene returns nodes with every scene-macro invocation spliced and every
// instruction value expanded. Sibling order at splice points is preserved.
func (x *Expander) Scene(path string, params map[string]value.Value, nodes []*ast.SceneNode) ([]*ast.SceneNode, *diag.Error) {
	var out []*ast.SceneNode
	for _, n := range nodes {
		if n.Call != nil {
			frag, err := x.splice(path, params, n)
			if err != nil {
				return nil, err
			}
			out = append(out, frag...)
			continue
		}
		c := &ast.SceneNode{Fill: n.Fill, Rng: n.Rng, Name: n.Name}
		for _, in := range n.Instrs {
			v, err := x.Value(path, params, in)
			if err != nil {
				return nil, err
			}
			ci, ok := v.(*value.Instr)
			if !ok {
				return nil, diag.New(diag.UnresolvedReference, in.Rng, "expansion of instruction %q did not produce an instruction", in.Type)
			}
			c.Instrs = append(c.Instrs, ci)
		}
		children, err := x.Scene(path, params, n.Children)
		if err != nil {
			return nil, err
		}
		c.Children = children
		out = append(out, c)
	}
	return out, nil
}

// splice instantiates one scene-macro invocation and returns the expanded
// fragment that replaces the marker node.
func (x *Expander) splice(path string, params map[string]value.Value, n *ast.SceneNode) ([]*ast.SceneNode, *diag.Error) {
	sm, defPath, ok := x.scope.SceneMacro(path, n.Call.Alias, n.Name)
	if !ok {
		return nil, x.unresolved(n.Rng, n.Call.Alias, n.Name)
	}
	bound, err := x.bindArgs(path, params, sm.Params, n.Call.Args, n.Rng, n.Name)
	if err != nil {
		return nil, err
	}
	if err := x.push(n.Name, defPath, n.Rng); err != nil {
		return nil, err
	}
	defer x.pop()
	frag := make([]*ast.SceneNode, 0, len(sm.Body))
	for _, bn := range sm.Body {
		frag = append(frag, ast.CopyNode(bn))
	}
	return x.Scene(defPath, bound, frag)
}

// bindArgs evaluates invocation arguments in the caller's scope and binds
// them to the declared parameters, positionally first, named afterwards.
func (x *Expander) bindArgs(callerPath string, callerParams map[string]value.Value, params []string, args []value.Arg, at hcl.Range, name string) (map[string]value.Value, *diag.Error) {
	declared := map[string]bool{}
	for _, p := range params {
		declared[p] = true
	}
	bound := map[string]value.Value{}
	positional := 0
	for _, a := range args {
		v, err := x.Value(callerPath, callerParams, a.Val)
		if err != nil {
			return nil, err
		}
		target := a.Name
		if target == "" {
			if positional >= len(params) {
				return nil, diag.New(diag.UnboundParameter, a.Val.Range(),
					"too many positional arguments for %q: it declares %d parameter(s)", name, len(params))
			}
			target = params[positional]
			positional++
		} else {
			if !declared[target] {
				return nil, diag.New(diag.UnboundParameter, a.NameRange,
					"%q has no parameter named %q", name, target)
			}
		}
		if _, dup := bound[target]; dup {
			return nil, diag.New(diag.UnboundParameter, at, "argument %q supplied twice in invocation of %q", target, name)
		}
		bound[target] = v
	}
	var missing []string
	for _, p := range params {
		if _, ok := bound[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, diag.New(diag.UnboundParameter, at,
			"invocation of %q leaves parameter(s) unbound: %s", name, strings.Join(missing, ", "))
	}
	return bound, nil
}

func (x *Expander) push(name, path string, at hcl.Range) *diag.Error {
	f := frame{name: name, path: path}
	for _, existing := range x.stack {
		if existing == f {
			e := diag.New(diag.CyclicExpansion, at, "%q expands through itself", name)
			e.Chain = x.chain(f)
			return e
		}
	}
	if len(x.stack) >= MaxDepth {
		e := diag.New(diag.ExpansionDepthExceeded, at,
			"expansion of %q exceeds the maximum depth of %d", name, MaxDepth)
		e.Chain = x.chain(f)
		return e
	}
	x.stack = append(x.stack, f)
	return nil
}

func (x *Expander) pop() { x.stack = x.stack[:len(x.stack)-1] }

func (x *Expander) chain(last frame) []string {
	chain := make([]string, 0, len(x.stack)+1)
	for _, f := range x.stack {
		chain = append(chain, f.String())
	}
	return append(chain, last.String())
}

func (x *Expander) unresolved(at hcl.Range, alias, name string) *diag.Error {
	ref := name
	if alias != "" {
		ref = alias + "." + name
	}
	return diag.New(diag.UnresolvedReference, at, "%s is not defined or imported", fmt.Sprintf("%q", ref))
}
