// Package resolve turns one file's extracted tables into its terminal
// ResolvedFile: the fully expanded commands buffer and scene forest, with
// every import, constant, macro, and scene-macro inlined.
package resolve

import (
	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/expand"
	"github.com/coblang/cob/internal/extract"
	"github.com/coblang/cob/internal/value"
)

// Lookup supplies cross-file state at resolution time. Implemented by the
// cache; every call reads current tables so a resolution attempt can never
// commit output built from a stale snapshot.
type Lookup interface {
	// Tables returns the extracted tables for a path, if that file has
	// successfully parsed and extracted.
	Tables(path string) (*extract.Tables, bool)
	// PathForKey resolves a manifest key through the project manifest.
	PathForKey(key string) (string, bool)
}

// ResolvedFile is the terminal artifact for one file. No Ref values and no
// scene-macro markers remain anywhere inside it.
type ResolvedFile struct {
	Path     string
	Commands []*value.Instr
	Scenes   []*ast.SceneNode
}

// File resolves one file. The caller (the cache) must have verified that
// the transitive closure of the file's imports has extracted tables; a
// missing dependency encountered here is reported as an unresolved
// reference, not a pending state.
func File(t *extract.Tables, lk Lookup) (*ResolvedFile, diag.Errors) {
	x := expand.New(&scope{lk: lk})
	rf := &ResolvedFile{Path: t.Path}
	var errs diag.Errors

	for _, in := range t.Commands {
		v, err := x.Value(t.Path, nil, in)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ci, ok := v.(*value.Instr)
		if !ok {
			errs = append(errs, diag.New(diag.UnresolvedReference, in.Rng,
				"expansion of command %q did not produce an instruction", in.Type))
			continue
		}
		rf.Commands = append(rf.Commands, ci)
	}

	scenes, err := x.Scene(t.Path, nil, t.Scenes)
	if err != nil {
		errs = append(errs, err)
	} else {
		rf.Scenes = scenes
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return rf, nil
}

// scope adapts the cache's Lookup to the expander's name resolution. An
// unqualified name resolves against the local defs, then the using
// bindings; a qualified name follows the import alias to the target file's
// tables.
type scope struct {
	lk Lookup
}

func (s *scope) Const(from, alias, name string) (extract.Const, string, bool) {
	t, target, ok := s.target(from, alias)
	if !ok {
		return extract.Const{}, "", false
	}
	if alias == "" {
		if c, ok := t.Consts[name]; ok {
			return c, target, true
		}
		if u, ok := t.Usings[name]; ok {
			return s.Const(from, u.Alias, u.Symbol)
		}
		return extract.Const{}, "", false
	}
	c, ok := t.Consts[name]
	return c, target, ok
}

func (s *scope) Macro(from, alias, name string) (extract.Macro, string, bool) {
	t, target, ok := s.target(from, alias)
	if !ok {
		return extract.Macro{}, "", false
	}
	if alias == "" {
		if m, ok := t.Macros[name]; ok {
			return m, target, true
		}
		if u, ok := t.Usings[name]; ok {
			return s.Macro(from, u.Alias, u.Symbol)
		}
		return extract.Macro{}, "", false
	}
	m, ok := t.Macros[name]
	return m, target, ok
}

func (s *scope) SceneMacro(from, alias, name string) (extract.SceneMacro, string, bool) {
	t, target, ok := s.target(from, alias)
	if !ok {
		return extract.SceneMacro{}, "", false
	}
	if alias == "" {
		if m, ok := t.SceneMacros[name]; ok {
			return m, target, true
		}
		if u, ok := t.Usings[name]; ok {
			return s.SceneMacro(from, u.Alias, u.Symbol)
		}
		return extract.SceneMacro{}, "", false
	}
	m, ok := t.SceneMacros[name]
	return m, target, ok
}

// target resolves the file whose namespace a reference lands in: the
// referencing file itself for unqualified names, or the imported file for
// alias-qualified ones.
func (s *scope) target(from, alias string) (*extract.Tables, string, bool) {
	t, ok := s.lk.Tables(from)
	if !ok {
		return nil, "", false
	}
	if alias == "" {
		return t, from, true
	}
	imp, ok := t.Imports[alias]
	if !ok {
		return nil, "", false
	}
	path, ok := s.lk.PathForKey(imp.Key)
	if !ok {
		return nil, "", false
	}
	tt, ok := s.lk.Tables(path)
	if !ok {
		return nil, "", false
	}
	return tt, path, true
}
