// Package extract derives the normalized per-file tables that the
// resolvers work from. Extraction is pure and file-local; the only failure
// it can add over the parser is a duplicate declaration inside one file,
// reported with both locations.
package extract

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/value"
)

// ManifestDecl is one key binding contributed by a file. Path is already
// concrete: `self` entries resolve to the declaring file's path here.
type ManifestDecl struct {
	Key  string
	Path string
	Rng  hcl.Range
}

// Import binds a file-local alias to a raw manifest key.
type Import struct {
	Alias string
	Key   string
	Rng   hcl.Range
}

// Using binds a local name to an imported symbol.
type Using struct {
	Local  string
	Alias  string
	Symbol string
	Rng    hcl.Range
}

// Const is a named value definition.
type Const struct {
	Name string
	Val  value.Value
	Rng  hcl.Range
}

// Macro is a named, parameterized value template.
type Macro struct {
	Name   string
	Params []string
	Body   value.Value
	Rng    hcl.Range
}

// SceneMacro is a named, parameterized scene fragment.
type SceneMacro struct {
	Name   string
	Params []string
	Body   []*ast.SceneNode
	Rng    hcl.Range
}

// Tables is the extracted, file-local view of one parsed File.
// Constants, macros, scene-macros, and using-bindings share one namespace.
type Tables struct {
	Path string

	Manifest    []ManifestDecl
	Imports     map[string]Import
	ImportOrder []string
	Usings      map[string]Using
	Consts      map[string]Const
	Macros      map[string]Macro
	SceneMacros map[string]SceneMacro

	Commands []*value.Instr
	Scenes   []*ast.SceneNode
}

// FromFile walks a File's sections once and builds its Tables.
func FromFile(f *ast.File) (*Tables, diag.Errors) {
	t := &Tables{
		Path:        f.Path,
		Imports:     map[string]Import{},
		Usings:      map[string]Using{},
		Consts:      map[string]Const{},
		Macros:      map[string]Macro{},
		SceneMacros: map[string]SceneMacro{},
	}
	var errs diag.Errors

	dup := func(kind string, name string, rng, first hcl.Range) {
		e := diag.New(diag.DuplicateDeclaration, rng, "%s %q declared twice in %s", kind, name, f.Path)
		e.Detail = "The first declaration is at " + first.String() + "."
		e.Related = []hcl.Range{first}
		errs = append(errs, e)
	}

	if f.Manifest != nil {
		seen := map[string]hcl.Range{}
		for _, e := range f.Manifest.Entries {
			if first, ok := seen[e.Key]; ok {
				dup("manifest key", e.Key, e.Rng, first)
				continue
			}
			seen[e.Key] = e.Rng
			path := e.Path
			if e.Self {
				path = f.Path
			}
			t.Manifest = append(t.Manifest, ManifestDecl{Key: e.Key, Path: path, Rng: e.Rng})
		}
	}

	if f.Import != nil {
		for _, e := range f.Import.Entries {
			if first, ok := t.Imports[e.Alias]; ok {
				dup("import alias", e.Alias, e.Rng, first.Rng)
				continue
			}
			t.Imports[e.Alias] = Import{Alias: e.Alias, Key: e.Key, Rng: e.Rng}
			t.ImportOrder = append(t.ImportOrder, e.Alias)
		}
	}

	// defRange reports where a name is already taken in the shared
	// defs/using namespace.
	defRange := func(name string) (hcl.Range, bool) {
		if d, ok := t.Consts[name]; ok {
			return d.Rng, true
		}
		if d, ok := t.Macros[name]; ok {
			return d.Rng, true
		}
		if d, ok := t.SceneMacros[name]; ok {
			return d.Rng, true
		}
		if d, ok := t.Usings[name]; ok {
			return d.Rng, true
		}
		return hcl.Range{}, false
	}

	if f.Using != nil {
		for _, e := range f.Using.Entries {
			if first, ok := defRange(e.Local); ok {
				dup("name", e.Local, e.Rng, first)
				continue
			}
			t.Usings[e.Local] = Using{Local: e.Local, Alias: e.Alias, Symbol: e.Symbol, Rng: e.Rng}
		}
	}

	if f.Defs != nil {
		for _, d := range f.Defs.Entries {
			if first, ok := defRange(d.DefName()); ok {
				dup("name", d.DefName(), d.Range(), first)
				continue
			}
			switch t2 := d.(type) {
			case *ast.ConstDef:
				t.Consts[t2.Name] = Const{Name: t2.Name, Val: t2.Val, Rng: t2.Rng}
			case *ast.MacroDef:
				t.Macros[t2.Name] = Macro{Name: t2.Name, Params: paramNames(t2.Params), Body: t2.Body, Rng: t2.Rng}
			case *ast.SceneMacroDef:
				t.SceneMacros[t2.Name] = SceneMacro{Name: t2.Name, Params: paramNames(t2.Params), Body: t2.Body, Rng: t2.Rng}
			}
		}
	}

	if f.Commands != nil {
		t.Commands = f.Commands.Instrs
	}
	if f.Scenes != nil {
		t.Scenes = f.Scenes.Roots
	}

	return t, errs
}

func paramNames(params []ast.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}
