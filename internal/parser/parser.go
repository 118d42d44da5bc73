// Package parser builds a File AST from raw COB text. The grammar is line-
// and section-keyword driven; see the lexer for tokenization and fill
// handling. Parsing stops at the first structural error: a file with any
// syntax error produces no AST.
package parser

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/lexer"
	"github.com/coblang/cob/internal/value"
)

// MaxDepth bounds nesting of composite values and scene trees. Exceeding
// it is a parse error, not a panic.
const MaxDepth = 64

type parser struct {
	path string
	toks []lexer.Token
	pos  int
	errs diag.Errors
	// failed short-circuits the remaining grammar once an error is recorded.
	failed bool
}

// Parse consumes raw text plus its file identity and returns the File AST,
// or the syntax errors that prevented one from being produced.
func Parse(path, src string) (*ast.File, diag.Errors) {
	toks, errs := lexer.Scan(path, src)
	if errs.HasErrors() {
		return nil, errs
	}
	p := &parser{path: path, toks: toks}
	f := p.parseFile()
	if p.errs.HasErrors() {
		return nil, p.errs
	}
	return f, nil
}

func (p *parser) parseFile() *ast.File {
	f := &ast.File{Path: p.path}
	seen := map[ast.SectionKind]hcl.Range{}
	for !p.failed && p.cur().Kind != lexer.EOF {
		tok := p.cur()
		if tok.Kind != lexer.Ident || !tok.NewLine || tok.Indent() != 0 {
			p.errorf(tok.Rng, "expected a section keyword at the start of a line, found %s", tok.Kind)
			return f
		}
		kind, ok := sectionKind(tok.Text)
		if !ok {
			p.errorf(tok.Rng, "unknown section %q; expected manifest, import, using, defs, commands, or scenes", tok.Text)
			return f
		}
		if first, dup := seen[kind]; dup {
			e := diag.New(diag.Syntax, tok.Rng, "duplicate %q section; one section of each kind is allowed per file", tok.Text)
			e.Related = []hcl.Range{first}
			p.errs = append(p.errs, e)
			p.failed = true
			return f
		}
		seen[kind] = tok.Rng
		f.Order = append(f.Order, kind)
		p.next()
		switch kind {
		case ast.SectionManifest:
			f.Manifest = p.parseManifest(tok)
		case ast.SectionImport:
			f.Import = p.parseImport(tok)
		case ast.SectionUsing:
			f.Using = p.parseUsing(tok)
		case ast.SectionDefs:
			f.Defs = p.parseDefs(tok)
		case ast.SectionCommands:
			f.Commands = p.parseCommands(tok)
		case ast.SectionScenes:
			f.Scenes = p.parseScenes(tok)
		}
	}
	f.TrailingFill = p.cur().Fill
	return f
}

func sectionKind(keyword string) (ast.SectionKind, bool) {
	switch keyword {
	case "manifest":
		return ast.SectionManifest, true
	case "import":
		return ast.SectionImport, true
	case "using":
		return ast.SectionUsing, true
	case "defs":
		return ast.SectionDefs, true
	case "commands":
		return ast.SectionCommands, true
	case "scenes":
		return ast.SectionScenes, true
	default:
		return 0, false
	}
}

// atEntry reports whether the cursor sits on a new indented line, i.e. the
// next entry of the current section.
func (p *parser) atEntry() bool {
	tok := p.cur()
	return !p.failed && tok.Kind != lexer.EOF && tok.NewLine && tok.Indent() > 0
}

func (p *parser) parseManifest(kw lexer.Token) *ast.ManifestSection {
	s := &ast.ManifestSection{Fill: kw.Fill, Rng: kw.Rng}
	for p.atEntry() {
		key := p.cur()
		if key.Kind != lexer.Ident {
			p.errorf(key.Rng, "expected a manifest key, found %s", key.Kind)
			return s
		}
		p.next()
		e := &ast.ManifestEntry{Fill: key.Fill, Key: key.Text}
		tok := p.cur()
		switch {
		case tok.Kind == lexer.Ident && tok.Text == "self" && !tok.NewLine:
			e.Self = true
			p.next()
		case tok.Kind == lexer.String && !tok.NewLine:
			e.Path = tok.Text
			p.next()
		default:
			p.errorf(tok.Rng, "expected 'self' or a quoted path after manifest key %q", key.Text)
			return s
		}
		e.Rng = hcl.RangeBetween(key.Rng, tok.Rng)
		s.Entries = append(s.Entries, e)
	}
	return s
}

func (p *parser) parseImport(kw lexer.Token) *ast.ImportSection {
	s := &ast.ImportSection{Fill: kw.Fill, Rng: kw.Rng}
	for p.atEntry() {
		alias := p.cur()
		if alias.Kind != lexer.Ident || !isLowerName(alias.Text) {
			p.errorf(alias.Rng, "expected an import alias (lowerCamel identifier), found %q", alias.Text)
			return s
		}
		p.next()
		key := p.cur()
		if key.Kind != lexer.Ident || key.NewLine {
			p.errorf(key.Rng, "expected a manifest key after alias %q on the same line", alias.Text)
			return s
		}
		p.next()
		s.Entries = append(s.Entries, &ast.ImportEntry{
			Fill:  alias.Fill,
			Rng:   hcl.RangeBetween(alias.Rng, key.Rng),
			Alias: alias.Text,
			Key:   key.Text,
		})
	}
	return s
}

func (p *parser) parseUsing(kw lexer.Token) *ast.UsingSection {
	s := &ast.UsingSection{Fill: kw.Fill, Rng: kw.Rng}
	for p.atEntry() {
		first := p.cur()
		if first.Kind != lexer.Ident || !isLowerName(first.Text) {
			p.errorf(first.Rng, "expected an identifier in using entry, found %s", first.Kind)
			return s
		}
		p.next()
		e := &ast.UsingEntry{Fill: first.Fill}
		if p.cur().Kind == lexer.Dot && !p.cur().NewLine {
			// alias.symbol — local name defaults to the symbol name.
			p.next()
			sym, ok := p.expectLowerIdent("imported symbol name")
			if !ok {
				return s
			}
			e.Alias = first.Text
			e.Symbol = sym.Text
			e.Local = sym.Text
			e.Rng = hcl.RangeBetween(first.Rng, sym.Rng)
		} else {
			// local alias.symbol
			alias := p.cur()
			if alias.Kind != lexer.Ident || alias.NewLine || !isLowerName(alias.Text) {
				p.errorf(alias.Rng, "expected alias.symbol after local name %q", first.Text)
				return s
			}
			p.next()
			if _, ok := p.expect(lexer.Dot, "'.'"); !ok {
				return s
			}
			sym, ok := p.expectLowerIdent("imported symbol name")
			if !ok {
				return s
			}
			e.Local = first.Text
			e.Alias = alias.Text
			e.Symbol = sym.Text
			e.Rng = hcl.RangeBetween(first.Rng, sym.Rng)
		}
		s.Entries = append(s.Entries, e)
	}
	return s
}

func (p *parser) parseDefs(kw lexer.Token) *ast.DefsSection {
	s := &ast.DefsSection{Fill: kw.Fill, Rng: kw.Rng}
	for p.atEntry() {
		head := p.cur()
		if head.Kind != lexer.Ident {
			p.errorf(head.Rng, "expected a definition name, found %s", head.Kind)
			return s
		}
		if head.Text == "scene" && p.peek(1).Kind == lexer.Ident && !p.peek(1).NewLine {
			s.Entries = append(s.Entries, p.parseSceneMacroDef(head))
			continue
		}
		if !isLowerName(head.Text) {
			p.errorf(head.Rng, "definition names are lowerCamel; %q is not", head.Text)
			return s
		}
		p.next()
		switch p.cur().Kind {
		case lexer.Equals:
			p.next()
			val := p.parseValue(0)
			if p.failed {
				return s
			}
			s.Entries = append(s.Entries, &ast.ConstDef{
				Fill:    head.Fill,
				Rng:     hcl.RangeBetween(head.Rng, val.Range()),
				Name:    head.Text,
				NameRng: head.Rng,
				Val:     val,
			})
		case lexer.LParen:
			params := p.parseParams()
			if p.failed {
				return s
			}
			if _, ok := p.expect(lexer.Equals, "'='"); !ok {
				return s
			}
			body := p.parseValue(0)
			if p.failed {
				return s
			}
			s.Entries = append(s.Entries, &ast.MacroDef{
				Fill:    head.Fill,
				Rng:     hcl.RangeBetween(head.Rng, body.Range()),
				Name:    head.Text,
				NameRng: head.Rng,
				Params:  params,
				Body:    body,
			})
		default:
			p.errorf(p.cur().Rng, "expected '=' or a parameter list after %q", head.Text)
			return s
		}
	}
	return s
}

func (p *parser) parseSceneMacroDef(kw lexer.Token) *ast.SceneMacroDef {
	p.next() // 'scene'
	name, ok := p.expectLowerIdent("scene-macro name")
	if !ok {
		return &ast.SceneMacroDef{Fill: kw.Fill, Rng: kw.Rng}
	}
	d := &ast.SceneMacroDef{
		Fill:    kw.Fill,
		Rng:     hcl.RangeBetween(kw.Rng, name.Rng),
		Name:    name.Text,
		NameRng: name.Rng,
	}
	if p.cur().Kind != lexer.LParen || p.cur().NewLine {
		p.errorf(p.cur().Rng, "expected a parameter list after scene-macro name %q", name.Text)
		return d
	}
	d.Params = p.parseParams()
	if p.failed {
		return d
	}
	d.Body = p.parseSceneBlock(kw.Indent(), 2)
	return d
}

func (p *parser) parseParams() []ast.Param {
	p.next() // '('
	var params []ast.Param
	seen := map[string]hcl.Range{}
	for p.cur().Kind != lexer.RParen {
		tok, ok := p.expectLowerIdent("parameter name")
		if !ok {
			return params
		}
		if first, dup := seen[tok.Text]; dup {
			e := diag.New(diag.DuplicateDeclaration, tok.Rng, "parameter %q declared twice", tok.Text)
			e.Related = []hcl.Range{first}
			p.errs = append(p.errs, e)
			p.failed = true
			return params
		}
		seen[tok.Text] = tok.Rng
		params = append(params, ast.Param{Name: tok.Text, Rng: tok.Rng})
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RParen, "')'")
	return params
}

func (p *parser) parseCommands(kw lexer.Token) *ast.CommandsSection {
	s := &ast.CommandsSection{Fill: kw.Fill, Rng: kw.Rng}
	for p.atEntry() {
		head := p.cur()
		v := p.parseValue(0)
		if p.failed {
			return s
		}
		in, ok := v.(*value.Instr)
		if !ok {
			p.errorf(head.Rng, "commands entries must be loadable instructions, e.g. TypeName(field: value)")
			return s
		}
		s.Instrs = append(s.Instrs, in)
	}
	return s
}

func (p *parser) parseScenes(kw lexer.Token) *ast.ScenesSection {
	s := &ast.ScenesSection{Fill: kw.Fill, Rng: kw.Rng}
	s.Roots = p.parseSceneBlock(0, 1)
	return s
}

// --- token plumbing ---

func (p *parser) cur() lexer.Token { return p.toks[p.pos] }

func (p *parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() lexer.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind lexer.TokenKind, what string) (lexer.Token, bool) {
	tok := p.cur()
	if tok.Kind != kind {
		p.errorf(tok.Rng, "expected %s, found %s", what, tok.Kind)
		return tok, false
	}
	p.next()
	return tok, true
}

func (p *parser) expectLowerIdent(what string) (lexer.Token, bool) {
	tok := p.cur()
	if tok.Kind != lexer.Ident || !isLowerName(tok.Text) {
		p.errorf(tok.Rng, "expected %s (lowerCamel identifier), found %s", what, tok.Kind)
		return tok, false
	}
	p.next()
	return tok, true
}

func (p *parser) errorf(rng hcl.Range, format string, args ...any) {
	p.errs = append(p.errs, diag.New(diag.Syntax, rng, format, args...))
	p.failed = true
}

func isLowerName(s string) bool {
	return len(s) > 0 && s[0] >= 'a' && s[0] <= 'z'
}

func isPascalName(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}
