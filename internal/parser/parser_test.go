package parser_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/parser"
	"github.com/coblang/cob/internal/value"
)

const sampleFile = `// Sample document exercising every section.
manifest
    app self
    lib "lib.cob"

import
    ui lib

using
    box ui.box
    wide ui.fullWidth

defs
    width = 120
    pair(a, b) = [a, b]
    scene header(title)
        bar
            Label(text: title)

commands
    LoadTexture(path: "x.png")

scenes
    root
        Transform(pos: (1, 2))
        child
            Sprite(id: 7)
    header("Hi")
    ui.header(title: "Yo")
`

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, errs := parser.Parse("test.cob", src)
	require.False(t, errs.HasErrors(), "parse failed: %v", errs)
	require.NotNil(t, f)
	return f
}

func TestParse_AllSections(t *testing.T) {
	f := mustParse(t, sampleFile)

	require.Equal(t, []ast.SectionKind{
		ast.SectionManifest, ast.SectionImport, ast.SectionUsing,
		ast.SectionDefs, ast.SectionCommands, ast.SectionScenes,
	}, f.Order)

	t.Run("manifest", func(t *testing.T) {
		require.Len(t, f.Manifest.Entries, 2)
		assert.Equal(t, "app", f.Manifest.Entries[0].Key)
		assert.True(t, f.Manifest.Entries[0].Self)
		assert.Equal(t, "lib", f.Manifest.Entries[1].Key)
		assert.Equal(t, "lib.cob", f.Manifest.Entries[1].Path)
	})

	t.Run("import", func(t *testing.T) {
		require.Len(t, f.Import.Entries, 1)
		assert.Equal(t, "ui", f.Import.Entries[0].Alias)
		assert.Equal(t, "lib", f.Import.Entries[0].Key)
	})

	t.Run("using", func(t *testing.T) {
		require.Len(t, f.Using.Entries, 2)
		// alias.symbol form: local name defaults to the symbol.
		assert.Equal(t, "box", f.Using.Entries[0].Local)
		assert.Equal(t, "ui", f.Using.Entries[0].Alias)
		assert.Equal(t, "box", f.Using.Entries[0].Symbol)
		// local alias.symbol form.
		assert.Equal(t, "wide", f.Using.Entries[1].Local)
		assert.Equal(t, "fullWidth", f.Using.Entries[1].Symbol)
	})

	t.Run("defs", func(t *testing.T) {
		require.Len(t, f.Defs.Entries, 3)
		c, ok := f.Defs.Entries[0].(*ast.ConstDef)
		require.True(t, ok)
		assert.Equal(t, "width", c.Name)

		m, ok := f.Defs.Entries[1].(*ast.MacroDef)
		require.True(t, ok)
		assert.Equal(t, "pair", m.Name)
		require.Len(t, m.Params, 2)

		sm, ok := f.Defs.Entries[2].(*ast.SceneMacroDef)
		require.True(t, ok)
		assert.Equal(t, "header", sm.Name)
		require.Len(t, sm.Body, 1)
		assert.Equal(t, "bar", sm.Body[0].Name)
		require.Len(t, sm.Body[0].Instrs, 1)
		assert.Equal(t, "Label", sm.Body[0].Instrs[0].Type)
	})

	t.Run("commands", func(t *testing.T) {
		require.Len(t, f.Commands.Instrs, 1)
		assert.Equal(t, "LoadTexture", f.Commands.Instrs[0].Type)
	})

	t.Run("scenes", func(t *testing.T) {
		require.Len(t, f.Scenes.Roots, 3)

		root := f.Scenes.Roots[0]
		assert.Equal(t, "root", root.Name)
		require.Len(t, root.Instrs, 1)
		assert.Equal(t, "Transform", root.Instrs[0].Type)
		require.Len(t, root.Children, 1)
		assert.Equal(t, "child", root.Children[0].Name)
		require.Len(t, root.Children[0].Instrs, 1)

		call := f.Scenes.Roots[1]
		assert.Equal(t, "header", call.Name)
		require.NotNil(t, call.Call)
		assert.Empty(t, call.Call.Alias)
		require.Len(t, call.Call.Args, 1)

		qcall := f.Scenes.Roots[2]
		assert.Equal(t, "header", qcall.Name)
		require.NotNil(t, qcall.Call)
		assert.Equal(t, "ui", qcall.Call.Alias)
		assert.Equal(t, "title", qcall.Call.Args[0].Name)
	})
}

func TestParse_ValueForms(t *testing.T) {
	src := `defs
    grouped = (1)
    oneTuple = (1,)
    emptyTuple = ()
    bare = Red
    payload = Rgb(1, 2, 3)
    instr = Load(path: "x")
    emptyParens = Marker()
    generics = Make<Foo, Bar>()
    builtin = @color("#fff")
    nested = {a: [1, (2,)], b: none}
`
	f := mustParse(t, src)
	byName := map[string]value.Value{}
	for _, d := range f.Defs.Entries {
		byName[d.DefName()] = d.(*ast.ConstDef).Val
	}

	assert.IsType(t, &value.Number{}, byName["grouped"], "single parenthesised value is grouping")
	tup, ok := byName["oneTuple"].(*value.Tuple)
	require.True(t, ok, "trailing comma makes a 1-tuple")
	assert.Len(t, tup.Elems, 1)
	assert.IsType(t, &value.Tuple{}, byName["emptyTuple"])

	v, ok := byName["bare"].(*value.Variant)
	require.True(t, ok)
	assert.Nil(t, v.Payload)

	v, ok = byName["payload"].(*value.Variant)
	require.True(t, ok)
	assert.Len(t, v.Payload, 3)

	in, ok := byName["instr"].(*value.Instr)
	require.True(t, ok)
	assert.Equal(t, "Load", in.Type)

	in, ok = byName["emptyParens"].(*value.Instr)
	require.True(t, ok, "empty parentheses parse as an instruction, not a variant")
	assert.Empty(t, in.Fields)

	in, ok = byName["generics"].(*value.Instr)
	require.True(t, ok)
	assert.Equal(t, []string{"Foo", "Bar"}, in.Generics)

	b, ok := byName["builtin"].(*value.Builtin)
	require.True(t, ok)
	assert.Equal(t, "color", b.Type)

	m, ok := byName["nested"].(*value.Map)
	require.True(t, ok)
	require.Len(t, m.Entries, 2)
	assert.IsType(t, &value.None{}, m.Entries[1].Val)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"unknown section", "stuff\n    a = 1\n", "unknown section"},
		{"duplicate section", "defs\n    a = 1\ndefs\n    b = 2\n", "duplicate"},
		{"duplicate map key", "defs\n    m = {a: 1, a: 2}\n", "appears twice"},
		{"duplicate field", "defs\n    i = Load(p: 1, p: 2)\n", "appears twice"},
		{"commands entry not an instruction", "commands\n    foo\n", "loadable instruction"},
		{"instruction at scene root", "scenes\n    Sprite(id: 1)\n", "must be inside a scene node"},
		{"lowercase generic", "defs\n    g = Make<foo>()\n", "PascalCase"},
		{"builtin payload not literal", "defs\n    b = @c([1])\n", "must be a literal"},
		{"positional after named", "defs\n    x = f(a: 1, 2)\n", "positional argument after named"},
		{"alias scene call without args", "scenes\n    ui.header\n", "argument list"},
		{"tab indentation", "defs\n\ta = 1\n", "tab character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, errs := parser.Parse("test.cob", tt.src)
			require.True(t, errs.HasErrors(), "expected a parse error")
			assert.Nil(t, f, "no AST may be produced for a failed parse")
			assert.Contains(t, errs[0].Summary, tt.wantMsg)
		})
	}
}

func TestParse_DuplicateParam(t *testing.T) {
	_, errs := parser.Parse("test.cob", "defs\n    f(a, a) = 1\n")
	require.True(t, errs.HasErrors())
	assert.Equal(t, diag.DuplicateDeclaration, errs[0].Kind)
	assert.NotEmpty(t, errs[0].Related, "the first declaration is referenced")
}

func TestParse_DepthGuard(t *testing.T) {
	depth := parser.MaxDepth + 5
	src := "defs\n    x = " + strings.Repeat("[", depth) + "0" + strings.Repeat("]", depth) + "\n"
	_, errs := parser.Parse("test.cob", src)
	require.True(t, errs.HasErrors())
	assert.Contains(t, errs[0].Summary, "maximum depth")
}

func TestParse_SceneMacroCallCannotHaveChildren(t *testing.T) {
	src := "scenes\n    header(\"x\")\n        child\n"
	_, errs := parser.Parse("test.cob", src)
	require.True(t, errs.HasErrors())
	assert.Contains(t, errs[0].Summary, "cannot have children")
}

// ignoreLayout drops fill and source spans, the two components that carry
// formatting rather than meaning.
var ignoreLayout = cmp.Options{
	cmp.FilterPath(func(p cmp.Path) bool {
		if sf, ok := p.Last().(cmp.StructField); ok {
			return sf.Name() == "Fill" || sf.Name() == "TrailingFill" || sf.Name() == "Rng" ||
				sf.Name() == "NameRng" || sf.Name() == "NameRange" || sf.Name() == "KeyRange"
		}
		return false
	}, cmp.Ignore()),
	cmp.Comparer(func(a, b hcl.Range) bool { return true }),
}

func TestRoundTrip(t *testing.T) {
	sources := map[string]string{
		"full sample": sampleFile,
		"comments and spacing": "// header\nmanifest\n    app  self\n\ndefs\n" +
			"    // width of the viewport\n    width = 120\n\n    color = @hex(\"ff00ff\")\n",
		"scenes only": "scenes\n    a\n        b\n            Sprite(id: 1)\n        c\n",
		"values":      "defs\n    m = {a: [1, -2.5e3, \"s\"], b: (true, none), c: Rgb(0, 0, 0)}\n",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			first := mustParse(t, src)
			out := ast.WriteFile(first)
			second, errs := parser.Parse("test.cob", out)
			require.False(t, errs.HasErrors(), "re-parse of serialized output failed: %v\n%s", errs, out)

			if diff := cmp.Diff(first, second, ignoreLayout); diff != "" {
				t.Errorf("round trip changed the document (-first +second):\n%s", diff)
			}

			// Serialization is stable once normalized.
			assert.Equal(t, out, ast.WriteFile(second))
		})
	}
}

func TestRoundTrip_PreservesComments(t *testing.T) {
	src := "defs\n    // the answer\n    answer = 42\n"
	f := mustParse(t, src)
	out := ast.WriteFile(f)
	assert.Contains(t, out, "// the answer")
	assert.Equal(t, src, out, "a parse of untouched text serializes byte-identically")
}
