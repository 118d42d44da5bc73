package ast

import (
	"strings"

	"github.com/coblang/cob/internal/value"
)

// WriteFile re-serializes a File. Output reproduces the original fill
// (whitespace and comments) wherever it is present; nodes synthesized
// without fill fall back to canonical four-space indentation. Re-parsing
// the output yields an AST equal to the input under fill-ignoring
// equality.
func WriteFile(f *File) string {
	var sb strings.Builder
	for _, kind := range f.Order {
		switch kind {
		case SectionManifest:
			s := f.Manifest
			sb.WriteString(s.Fill)
			sb.WriteString(kind.Keyword())
			for _, e := range s.Entries {
				lineFill(&sb, e.Fill, 1)
				sb.WriteString(e.Key)
				if e.Self {
					sb.WriteString(" self")
				} else {
					sb.WriteString(" ")
					sb.WriteString(value.Quote(e.Path))
				}
			}
		case SectionImport:
			s := f.Import
			sb.WriteString(s.Fill)
			sb.WriteString(kind.Keyword())
			for _, e := range s.Entries {
				lineFill(&sb, e.Fill, 1)
				sb.WriteString(e.Alias)
				sb.WriteString(" ")
				sb.WriteString(e.Key)
			}
		case SectionUsing:
			s := f.Using
			sb.WriteString(s.Fill)
			sb.WriteString(kind.Keyword())
			for _, e := range s.Entries {
				lineFill(&sb, e.Fill, 1)
				if e.Local != e.Symbol {
					sb.WriteString(e.Local)
					sb.WriteString(" ")
				}
				sb.WriteString(e.Alias)
				sb.WriteString(".")
				sb.WriteString(e.Symbol)
			}
		case SectionDefs:
			s := f.Defs
			sb.WriteString(s.Fill)
			sb.WriteString(kind.Keyword())
			for _, d := range s.Entries {
				writeDef(&sb, d)
			}
		case SectionCommands:
			s := f.Commands
			sb.WriteString(s.Fill)
			sb.WriteString(kind.Keyword())
			for _, in := range s.Instrs {
				if !strings.Contains(in.Fill, "\n") {
					lineFill(&sb, "", 1)
				}
				value.Write(&sb, in)
			}
		case SectionScenes:
			s := f.Scenes
			sb.WriteString(s.Fill)
			sb.WriteString(kind.Keyword())
			writeNodes(&sb, s.Roots, 1)
		}
	}
	sb.WriteString(f.TrailingFill)
	return sb.String()
}

func writeDef(sb *strings.Builder, d Def) {
	switch t := d.(type) {
	case *ConstDef:
		lineFill(sb, t.Fill, 1)
		sb.WriteString(t.Name)
		sb.WriteString(" =")
		value.Write(sb, t.Val)
	case *MacroDef:
		lineFill(sb, t.Fill, 1)
		sb.WriteString(t.Name)
		writeParams(sb, t.Params)
		sb.WriteString(" =")
		value.Write(sb, t.Body)
	case *SceneMacroDef:
		lineFill(sb, t.Fill, 1)
		sb.WriteString("scene ")
		sb.WriteString(t.Name)
		writeParams(sb, t.Params)
		writeNodes(sb, t.Body, 2)
	}
}

func writeParams(sb *strings.Builder, params []Param) {
	sb.WriteString("(")
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
	}
	sb.WriteString(")")
}

func writeNodes(sb *strings.Builder, nodes []*SceneNode, depth int) {
	for _, n := range nodes {
		lineFill(sb, n.Fill, depth)
		if n.Call != nil && n.Call.Alias != "" {
			sb.WriteString(n.Call.Alias)
			sb.WriteString(".")
		}
		sb.WriteString(n.Name)
		if n.Call != nil {
			sb.WriteString("(")
			for i, a := range n.Call.Args {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(a.Fill)
				if a.Name != "" {
					sb.WriteString(a.Name)
					sb.WriteString(":")
				}
				value.Write(sb, a.Val)
			}
			sb.WriteString(")")
		}
		for _, in := range n.Instrs {
			if !strings.Contains(in.Fill, "\n") {
				lineFill(sb, "", depth+1)
			}
			value.Write(sb, in)
		}
		writeNodes(sb, n.Children, depth+1)
	}
}

// lineFill emits the original fill when it carries a line break, or a
// canonical newline plus indentation otherwise.
func lineFill(sb *strings.Builder, fill string, depth int) {
	if strings.Contains(fill, "\n") {
		sb.WriteString(fill)
		return
	}
	sb.WriteString("\n")
	for i := 0; i < depth; i++ {
		sb.WriteString("    ")
	}
}
