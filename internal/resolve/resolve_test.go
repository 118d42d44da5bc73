package resolve_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/extract"
	"github.com/coblang/cob/internal/parser"
	"github.com/coblang/cob/internal/resolve"
	"github.com/coblang/cob/internal/value"
)

// project is a static resolve.Lookup over pre-extracted tables, with
// manifest keys collected from every file's declarations.
type project struct {
	tables map[string]*extract.Tables
	keys   map[string]string
}

func newProject(t *testing.T, files map[string]string) *project {
	t.Helper()
	p := &project{tables: map[string]*extract.Tables{}, keys: map[string]string{}}
	for path, src := range files {
		f, errs := parser.Parse(path, src)
		require.False(t, errs.HasErrors(), "parse of %s failed: %v", path, errs)
		tables, errs := extract.FromFile(f)
		require.False(t, errs.HasErrors(), "extract of %s failed: %v", path, errs)
		p.tables[path] = tables
		for _, d := range tables.Manifest {
			p.keys[d.Key] = d.Path
		}
	}
	return p
}

func (p *project) Tables(path string) (*extract.Tables, bool) {
	t, ok := p.tables[path]
	return t, ok
}

func (p *project) PathForKey(key string) (string, bool) {
	path, ok := p.keys[key]
	return path, ok
}

func resolveOne(t *testing.T, files map[string]string, path string) (*resolve.ResolvedFile, diag.Errors) {
	t.Helper()
	p := newProject(t, files)
	return resolve.File(p.tables[path], p)
}

func field(t *testing.T, in *value.Instr, name string) value.Value {
	t.Helper()
	for _, f := range in.Fields {
		if f.Name == name {
			return f.Val
		}
	}
	t.Fatalf("instruction %s has no field %q", in.Type, name)
	return nil
}

func TestFile_ConstSubstitution(t *testing.T) {
	rf, errs := resolveOne(t, map[string]string{
		"app.cob": "defs\n    width = 120\ncommands\n    Resize(w: width)\n",
	}, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)

	require.Len(t, rf.Commands, 1)
	assert.True(t, value.Equal(&value.Number{V: 120}, field(t, rf.Commands[0], "w")))
}

func TestFile_MacroArguments(t *testing.T) {
	files := map[string]string{
		"app.cob": "defs\n    pair(a, b) = [a, b]\ncommands\n    Use(v: pair(1, b: 2))\n",
	}
	rf, errs := resolveOne(t, files, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)

	want := &value.Array{Elems: []value.Value{&value.Number{V: 1}, &value.Number{V: 2}}}
	got := field(t, rf.Commands[0], "v")
	assert.True(t, value.Equal(want, got), "got %s", value.Sprint(got))
}

func TestFile_MacroArgumentsAreExpandedEagerly(t *testing.T) {
	src := "defs\n    two = 2\n    double(x) = [x, x]\ncommands\n    Use(v: double(two))\n"
	rf, errs := resolveOne(t, map[string]string{"app.cob": src}, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)

	want := &value.Array{Elems: []value.Value{&value.Number{V: 2}, &value.Number{V: 2}}}
	assert.True(t, value.Equal(want, field(t, rf.Commands[0], "v")))
}

func TestFile_CrossFileReferences(t *testing.T) {
	files := map[string]string{
		"lib.cob": `manifest
    lib self
defs
    base = 8
    width = pad(base)
    pad(x) = [x, x]
`,
		"app.cob": `import
    u lib
using
    width u.width
commands
    A(v: u.width)
    B(v: width)
    C(v: u.pad(3))
`,
	}
	rf, errs := resolveOne(t, files, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)
	require.Len(t, rf.Commands, 3)

	// width's own body references resolve in lib.cob, not in the caller.
	want := &value.Array{Elems: []value.Value{&value.Number{V: 8}, &value.Number{V: 8}}}
	assert.True(t, value.Equal(want, field(t, rf.Commands[0], "v")), "qualified reference")
	assert.True(t, value.Equal(want, field(t, rf.Commands[1], "v")), "using binding")

	want3 := &value.Array{Elems: []value.Value{&value.Number{V: 3}, &value.Number{V: 3}}}
	assert.True(t, value.Equal(want3, field(t, rf.Commands[2], "v")), "qualified macro call")
}

func TestFile_SceneMacroSplice(t *testing.T) {
	src := `defs
    scene header(title)
        bar
            Label(text: title)
        shadow
scenes
    before
    header("Hi")
    after
`
	rf, errs := resolveOne(t, map[string]string{"app.cob": src}, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)

	// The two-node fragment replaces the invocation in place.
	require.Len(t, rf.Scenes, 4)
	assert.Equal(t, "before", rf.Scenes[0].Name)
	assert.Equal(t, "bar", rf.Scenes[1].Name)
	assert.Equal(t, "shadow", rf.Scenes[2].Name)
	assert.Equal(t, "after", rf.Scenes[3].Name)

	require.Len(t, rf.Scenes[1].Children, 0)
	require.Len(t, rf.Scenes[1].Instrs, 1)
	assert.True(t, value.Equal(&value.String{V: "Hi"}, field(t, rf.Scenes[1].Instrs[0], "text")))
}

func TestFile_SceneMacroNested(t *testing.T) {
	src := `defs
    scene leaf(id)
        dot
            Sprite(id: id)
    scene branch(id)
        holder
            leaf(id)
scenes
    root
        branch(7)
`
	rf, errs := resolveOne(t, map[string]string{"app.cob": src}, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)

	require.Len(t, rf.Scenes, 1)
	holder := rf.Scenes[0].Children[0]
	assert.Equal(t, "holder", holder.Name)
	require.Len(t, holder.Children, 1)
	dot := holder.Children[0]
	assert.Equal(t, "dot", dot.Name)
	assert.True(t, value.Equal(&value.Number{V: 7}, field(t, dot.Instrs[0], "id")))
}

func TestFile_NoRefsSurvive(t *testing.T) {
	src := "defs\n    w = {a: [1, Red]}\ncommands\n    Use(v: w, u: {k: w})\n"
	rf, errs := resolveOne(t, map[string]string{"app.cob": src}, "app.cob")
	require.False(t, errs.HasErrors(), "%v", errs)

	var walk func(v value.Value)
	walk = func(v value.Value) {
		switch t2 := v.(type) {
		case *value.Ref:
			t.Errorf("reference %q survived resolution", t2.Name)
		case *value.Array:
			for _, e := range t2.Elems {
				walk(e)
			}
		case *value.Map:
			for _, e := range t2.Entries {
				walk(e.Val)
			}
		case *value.Instr:
			for _, f := range t2.Fields {
				walk(f.Val)
			}
		}
	}
	for _, in := range rf.Commands {
		walk(in)
	}
}

func TestFile_ExpansionFailures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{"unresolved reference",
			"commands\n    Use(v: ghost)\n", diag.UnresolvedReference},
		{"unresolved qualified reference",
			"commands\n    Use(v: nowhere.thing)\n", diag.UnresolvedReference},
		{"const invoked with arguments",
			"defs\n    w = 1\ncommands\n    Use(v: w(1))\n", diag.UnresolvedReference},
		{"macro referenced without arguments",
			"defs\n    f(a) = a\ncommands\n    Use(v: f)\n", diag.UnboundParameter},
		{"missing parameter",
			"defs\n    f(a, b) = [a, b]\ncommands\n    Use(v: f(1))\n", diag.UnboundParameter},
		{"unknown named argument",
			"defs\n    f(a) = a\ncommands\n    Use(v: f(a: 1, z: 2))\n", diag.UnboundParameter},
		{"too many positional arguments",
			"defs\n    f(a) = a\ncommands\n    Use(v: f(1, 2))\n", diag.UnboundParameter},
		{"argument supplied twice",
			"defs\n    f(a) = a\ncommands\n    Use(v: f(1, a: 2))\n", diag.UnboundParameter},
		{"parameter invoked",
			"defs\n    f(a) = a(1)\ncommands\n    Use(v: f(2))\n", diag.UnresolvedReference},
		{"value cycle",
			"defs\n    x = y\n    y = x\ncommands\n    Use(v: x)\n", diag.CyclicExpansion},
		{"macro cycle",
			"defs\n    f(a) = g(a)\n    g(a) = f(a)\ncommands\n    Use(v: f(1))\n", diag.CyclicExpansion},
		{"const through macro cycle",
			"defs\n    a = m(1)\n    m(p) = [a, p]\ncommands\n    Use(v: a)\n", diag.CyclicExpansion},
		{"scene macro cycle",
			"defs\n    scene loop(a)\n        node\n            loop(a)\nscenes\n    loop(1)\n", diag.CyclicExpansion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf, errs := resolveOne(t, map[string]string{"app.cob": tt.src}, "app.cob")
			require.True(t, errs.HasErrors(), "expected resolution to fail")
			assert.Nil(t, rf)
			assert.Equal(t, tt.kind, errs[0].Kind)
		})
	}
}

func TestFile_CycleReportsChain(t *testing.T) {
	src := "defs\n    x = y\n    y = x\ncommands\n    Use(v: x)\n"
	_, errs := resolveOne(t, map[string]string{"app.cob": src}, "app.cob")
	require.True(t, errs.HasErrors())
	require.Equal(t, diag.CyclicExpansion, errs[0].Kind)
	assert.Equal(t, []string{"x@app.cob", "y@app.cob", "x@app.cob"}, errs[0].Chain)
}

func TestFile_DepthGuard(t *testing.T) {
	// A linear chain deeper than the cap, with no cycle anywhere.
	var sb strings.Builder
	sb.WriteString("defs\n")
	const links = 70
	for i := 0; i < links; i++ {
		if i == links-1 {
			fmt.Fprintf(&sb, "    c%d = 0\n", i)
		} else {
			fmt.Fprintf(&sb, "    c%d = c%d\n", i, i+1)
		}
	}
	sb.WriteString("commands\n    Use(v: c0)\n")

	_, errs := resolveOne(t, map[string]string{"app.cob": sb.String()}, "app.cob")
	require.True(t, errs.HasErrors())
	assert.Equal(t, diag.ExpansionDepthExceeded, errs[0].Kind)
	assert.NotEmpty(t, errs[0].Chain)
}

func TestFile_ErrorsAccumulatePerCommand(t *testing.T) {
	src := "commands\n    A(v: ghost)\n    B(v: phantom)\n"
	_, errs := resolveOne(t, map[string]string{"app.cob": src}, "app.cob")
	require.Len(t, errs, 2, "each failing command reports independently")
}
