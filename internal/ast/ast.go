// Package ast defines the file-level syntax tree for COB documents: the
// six optional sections and the scene-node hierarchy. Value-level nodes
// live in the value package.
package ast

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/value"
)

// File is the parsed form of one COB document. It is immutable once built;
// a hot reload replaces the whole File.
type File struct {
	Path string

	Manifest *ManifestSection
	Import   *ImportSection
	Using    *UsingSection
	Defs     *DefsSection
	Commands *CommandsSection
	Scenes   *ScenesSection

	// Order records the sections in source order for re-serialization.
	Order []SectionKind
	// TrailingFill is whitespace and comments after the last token.
	TrailingFill string
}

// SectionKind names one of the six section keywords.
type SectionKind int

const (
	SectionManifest SectionKind = iota
	SectionImport
	SectionUsing
	SectionDefs
	SectionCommands
	SectionScenes
)

// Keyword returns the section's introducing keyword.
func (k SectionKind) Keyword() string {
	switch k {
	case SectionManifest:
		return "manifest"
	case SectionImport:
		return "import"
	case SectionUsing:
		return "using"
	case SectionDefs:
		return "defs"
	case SectionCommands:
		return "commands"
	case SectionScenes:
		return "scenes"
	default:
		return "?"
	}
}

// ManifestSection declares project-wide keys for file paths.
type ManifestSection struct {
	Fill    string
	Rng     hcl.Range
	Entries []*ManifestEntry
}

// ManifestEntry is `key self` or `key "path"`. Self is resolved to the
// declaring file's own path during extraction.
type ManifestEntry struct {
	Fill string
	Rng  hcl.Range
	Key  string
	// Path is empty when Self is set.
	Path string
	Self bool
}

// ImportSection binds file-local aliases to manifest keys.
type ImportSection struct {
	Fill    string
	Rng     hcl.Range
	Entries []*ImportEntry
}

// ImportEntry is `alias key`. Key is raw text here; it resolves to a path
// only against the project manifest.
type ImportEntry struct {
	Fill  string
	Rng   hcl.Range
	Alias string
	Key   string
}

// UsingSection brings imported symbols into the file's unqualified
// namespace.
type UsingSection struct {
	Fill    string
	Rng     hcl.Range
	Entries []*UsingEntry
}

// UsingEntry is `local alias.symbol`, or `alias.symbol` with the local
// name defaulting to the symbol name.
type UsingEntry struct {
	Fill   string
	Rng    hcl.Range
	Local  string
	Alias  string
	Symbol string
}

// DefsSection holds constants, macros, and scene-macros, in source order.
type DefsSection struct {
	Fill    string
	Rng     hcl.Range
	Entries []Def
}

// Def is the closed union of definition kinds.
type Def interface {
	DefName() string
	Range() hcl.Range
	isDef()
}

// ConstDef is `name = value`.
type ConstDef struct {
	Fill    string
	Rng     hcl.Range
	Name    string
	NameRng hcl.Range
	Val     value.Value
}

// MacroDef is `name(p1, p2) = value`; the body is a template that
// expansion instantiates with bound parameters.
type MacroDef struct {
	Fill    string
	Rng     hcl.Range
	Name    string
	NameRng hcl.Range
	Params  []Param
	Body    value.Value
}

// SceneMacroDef is `scene name(p...)` followed by an indented node subtree.
type SceneMacroDef struct {
	Fill    string
	Rng     hcl.Range
	Name    string
	NameRng hcl.Range
	Params  []Param
	Body    []*SceneNode
}

// Param is one declared parameter name.
type Param struct {
	Name string
	Rng  hcl.Range
}

func (d *ConstDef) DefName() string      { return d.Name }
func (d *MacroDef) DefName() string      { return d.Name }
func (d *SceneMacroDef) DefName() string { return d.Name }

func (d *ConstDef) Range() hcl.Range      { return d.Rng }
func (d *MacroDef) Range() hcl.Range      { return d.Rng }
func (d *SceneMacroDef) Range() hcl.Range { return d.Rng }

func (*ConstDef) isDef()      {}
func (*MacroDef) isDef()      {}
func (*SceneMacroDef) isDef() {}

// CommandsSection is the flat list of loadable instructions.
type CommandsSection struct {
	Fill   string
	Rng    hcl.Range
	Instrs []*value.Instr
}

// ScenesSection is the forest of scene trees.
type ScenesSection struct {
	Fill  string
	Rng   hcl.Range
	Roots []*SceneNode
}

// SceneNode is one node in a scene tree. When Call is non-nil the node is a
// scene-macro invocation marker: Name is the macro name, the node has no
// children of its own, and expansion splices the instantiated fragment in
// its place.
type SceneNode struct {
	Fill     string
	Rng      hcl.Range
	Name     string
	Call     *SceneCall
	Instrs   []*value.Instr
	Children []*SceneNode
}

// SceneCall carries the invocation side of a scene-macro marker.
type SceneCall struct {
	Alias string
	Args  []value.Arg
}

// CopyNode deep-copies a scene subtree. Fill is cleared on the copy: a
// spliced fragment takes the indentation of its new surroundings when
// re-serialized, not the definition's.
func CopyNode(n *SceneNode) *SceneNode {
	c := &SceneNode{Name: n.Name, Rng: n.Rng}
	if n.Call != nil {
		call := &SceneCall{Alias: n.Call.Alias, Args: make([]value.Arg, len(n.Call.Args))}
		for i, a := range n.Call.Args {
			a.Val = value.Copy(a.Val)
			a.Fill = ""
			call.Args[i] = a
		}
		c.Call = call
	}
	for _, in := range n.Instrs {
		ci := value.CopyInstr(in)
		ci.Fill = ""
		c.Instrs = append(c.Instrs, ci)
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, CopyNode(child))
	}
	return c
}
