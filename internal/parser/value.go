package parser

import (
	"strconv"

	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/lexer"
	"github.com/coblang/cob/internal/value"
)

// parseValue parses one value of any kind. depth counts composite nesting
// and is capped at MaxDepth.
func (p *parser) parseValue(depth int) value.Value {
	if depth > MaxDepth {
		p.errorf(p.cur().Rng, "value nesting exceeds the maximum depth of %d", MaxDepth)
		return &value.None{}
	}
	tok := p.cur()
	meta := value.Meta{Fill: tok.Fill, Rng: tok.Rng}
	switch tok.Kind {
	case lexer.Number:
		p.next()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.errorf(tok.Rng, "malformed number literal %q", tok.Text)
			return &value.None{Meta: meta}
		}
		return &value.Number{Meta: meta, Raw: tok.Text, V: f}

	case lexer.String:
		p.next()
		return &value.String{Meta: meta, V: tok.Text}

	case lexer.LBracket:
		p.next()
		elems, _, close_ := p.parseElems(lexer.RBracket, "']'", depth)
		meta.Rng = hcl.RangeBetween(tok.Rng, close_.Rng)
		return &value.Array{Meta: meta, Elems: elems}

	case lexer.LParen:
		p.next()
		elems, trailingComma, close_ := p.parseElems(lexer.RParen, "')'", depth)
		if len(elems) == 1 && !trailingComma {
			// Grouping parentheses, not a 1-tuple.
			return elems[0]
		}
		meta.Rng = hcl.RangeBetween(tok.Rng, close_.Rng)
		return &value.Tuple{Meta: meta, Elems: elems}

	case lexer.LBrace:
		return p.parseMap(tok, depth)

	case lexer.At:
		return p.parseBuiltin(tok, depth)

	case lexer.Ident:
		switch tok.Text {
		case "none":
			p.next()
			return &value.None{Meta: meta}
		case "true", "false":
			p.next()
			return &value.Bool{Meta: meta, V: tok.Text == "true"}
		}
		if isPascalName(tok.Text) {
			return p.parseInstrOrVariant(tok, depth)
		}
		return p.parseRef(tok, depth)

	default:
		p.errorf(tok.Rng, "expected a value, found %s", tok.Kind)
		return &value.None{Meta: meta}
	}
}

// parseElems parses a comma-separated value list up to the closing token.
func (p *parser) parseElems(close lexer.TokenKind, closeWhat string, depth int) ([]value.Value, bool, lexer.Token) {
	var elems []value.Value
	trailingComma := false
	for p.cur().Kind != close {
		elems = append(elems, p.parseValue(depth+1))
		if p.failed {
			return elems, false, p.cur()
		}
		trailingComma = false
		if p.cur().Kind == lexer.Comma {
			p.next()
			trailingComma = true
			continue
		}
		break
	}
	tok, _ := p.expect(close, closeWhat)
	return elems, trailingComma, tok
}

func (p *parser) parseMap(open lexer.Token, depth int) value.Value {
	p.next() // '{'
	m := &value.Map{Meta: value.Meta{Fill: open.Fill, Rng: open.Rng}}
	seen := map[string]hcl.Range{}
	for p.cur().Kind != lexer.RBrace {
		key := p.cur()
		if key.Kind != lexer.Ident {
			p.errorf(key.Rng, "expected a map key, found %s", key.Kind)
			return m
		}
		if first, dup := seen[key.Text]; dup {
			p.errorf(key.Rng, "map key %q appears twice (first at %s)", key.Text, first.String())
			return m
		}
		seen[key.Text] = key.Rng
		p.next()
		if _, ok := p.expect(lexer.Colon, "':'"); !ok {
			return m
		}
		val := p.parseValue(depth + 1)
		if p.failed {
			return m
		}
		m.Entries = append(m.Entries, value.MapEntry{
			Fill:     key.Fill,
			KeyRange: key.Rng,
			Key:      key.Text,
			Val:      val,
		})
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	tok, _ := p.expect(lexer.RBrace, "'}'")
	m.Rng = hcl.RangeBetween(open.Rng, tok.Rng)
	return m
}

func (p *parser) parseBuiltin(at lexer.Token, depth int) value.Value {
	p.next() // '@'
	name := p.cur()
	if name.Kind != lexer.Ident || !isLowerName(name.Text) {
		p.errorf(name.Rng, "expected a builtin type tag after '@', found %s", name.Kind)
		return &value.None{}
	}
	p.next()
	if _, ok := p.expect(lexer.LParen, "'('"); !ok {
		return &value.None{}
	}
	payload := p.parseValue(depth + 1)
	if p.failed {
		return &value.None{}
	}
	switch payload.(type) {
	case *value.None, *value.Bool, *value.Number, *value.String:
		// builtin payloads are opaque scalars
	default:
		p.errorf(payload.Range(), "builtin @%s payload must be a literal", name.Text)
		return &value.None{}
	}
	close_, ok := p.expect(lexer.RParen, "')'")
	if !ok {
		return &value.None{}
	}
	return &value.Builtin{
		Meta:    value.Meta{Fill: at.Fill, Rng: hcl.RangeBetween(at.Rng, close_.Rng)},
		Type:    name.Text,
		Payload: payload,
	}
}

// parseInstrOrVariant parses a PascalCase head: a loadable instruction when
// the argument list uses field syntax (or is empty, or generics are
// present), an enum variant otherwise.
func (p *parser) parseInstrOrVariant(head lexer.Token, depth int) value.Value {
	p.next()
	meta := value.Meta{Fill: head.Fill, Rng: head.Rng}

	var generics []string
	if p.cur().Kind == lexer.Less && !p.cur().NewLine {
		p.next()
		for {
			g := p.cur()
			if g.Kind != lexer.Ident || !isPascalName(g.Text) {
				p.errorf(g.Rng, "generic arguments must be PascalCase type identifiers")
				return &value.None{}
			}
			p.next()
			generics = append(generics, g.Text)
			if p.cur().Kind == lexer.Comma {
				p.next()
				continue
			}
			break
		}
		if _, ok := p.expect(lexer.Greater, "'>'"); !ok {
			return &value.None{}
		}
		if p.cur().Kind != lexer.LParen {
			p.errorf(p.cur().Rng, "expected '(' after generic arguments of %s", head.Text)
			return &value.None{}
		}
	}

	if p.cur().Kind != lexer.LParen || p.cur().NewLine {
		if generics != nil {
			p.errorf(p.cur().Rng, "expected '(' after generic arguments of %s", head.Text)
			return &value.None{}
		}
		return &value.Variant{Meta: meta, Name: head.Text}
	}

	p.next() // '('
	fieldSyntax := p.cur().Kind == lexer.RParen ||
		(p.cur().Kind == lexer.Ident && p.peek(1).Kind == lexer.Colon) ||
		generics != nil

	if !fieldSyntax {
		payload, _, close_ := p.parseElems(lexer.RParen, "')'", depth)
		if p.failed {
			return &value.None{}
		}
		meta.Rng = hcl.RangeBetween(head.Rng, close_.Rng)
		return &value.Variant{Meta: meta, Name: head.Text, Payload: payload}
	}

	in := &value.Instr{Meta: meta, Type: head.Text, Generics: generics}
	seen := map[string]hcl.Range{}
	for p.cur().Kind != lexer.RParen {
		name := p.cur()
		if name.Kind != lexer.Ident || !isLowerName(name.Text) {
			p.errorf(name.Rng, "expected a field name in %s(...), found %s", head.Text, name.Kind)
			return in
		}
		if first, dup := seen[name.Text]; dup {
			p.errorf(name.Rng, "field %q appears twice in %s(...) (first at %s)", name.Text, head.Text, first.String())
			return in
		}
		seen[name.Text] = name.Rng
		p.next()
		if _, ok := p.expect(lexer.Colon, "':'"); !ok {
			return in
		}
		val := p.parseValue(depth + 1)
		if p.failed {
			return in
		}
		in.Fields = append(in.Fields, value.Field{
			Fill:      name.Fill,
			NameRange: name.Rng,
			Name:      name.Text,
			Val:       val,
		})
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	close_, ok := p.expect(lexer.RParen, "')'")
	if !ok {
		return in
	}
	in.Rng = hcl.RangeBetween(head.Rng, close_.Rng)
	return in
}

// parseRef parses a constant/macro reference: name, alias.name, optionally
// with call arguments.
func (p *parser) parseRef(head lexer.Token, depth int) value.Value {
	p.next()
	ref := &value.Ref{Meta: value.Meta{Fill: head.Fill, Rng: head.Rng}, Name: head.Text}
	if p.cur().Kind == lexer.Dot && !p.cur().NewLine {
		p.next()
		sym, ok := p.expectLowerIdent("imported symbol name")
		if !ok {
			return ref
		}
		ref.Alias = head.Text
		ref.Name = sym.Text
		ref.Rng = hcl.RangeBetween(head.Rng, sym.Rng)
	}
	if p.cur().Kind != lexer.LParen || p.cur().NewLine {
		return ref
	}
	p.next() // '('
	ref.Args = []value.Arg{}
	namedSeen := false
	for p.cur().Kind != lexer.RParen {
		arg := value.Arg{}
		if p.cur().Kind == lexer.Ident && p.peek(1).Kind == lexer.Colon && isLowerName(p.cur().Text) {
			name := p.next()
			p.next() // ':'
			arg.Name = name.Text
			arg.NameRange = name.Rng
			arg.Fill = name.Fill
			namedSeen = true
		} else if namedSeen {
			p.errorf(p.cur().Rng, "positional argument after named argument in call of %q", ref.Name)
			return ref
		}
		arg.Val = p.parseValue(depth + 1)
		if p.failed {
			return ref
		}
		ref.Args = append(ref.Args, arg)
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	close_, ok := p.expect(lexer.RParen, "')'")
	if !ok {
		return ref
	}
	ref.Rng = hcl.RangeBetween(head.Rng, close_.Rng)
	return ref
}
