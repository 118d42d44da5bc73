package parser

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/ast"
	"github.com/coblang/cob/internal/lexer"
	"github.com/coblang/cob/internal/value"
)

// openNode is a stack entry while reconstructing the scene hierarchy from
// line indentation.
type openNode struct {
	node   *ast.SceneNode
	indent int
}

// parseSceneBlock consumes scene lines whose indentation is strictly
// greater than minIndent and rebuilds the tree. baseDepth only sizes the
// depth guard (scene-macro bodies start one level deeper than scene roots).
func (p *parser) parseSceneBlock(minIndent, baseDepth int) []*ast.SceneNode {
	var roots []*ast.SceneNode
	var stack []openNode

	for !p.failed {
		tok := p.cur()
		if tok.Kind == lexer.EOF || !tok.NewLine || tok.Indent() <= minIndent {
			break
		}
		indent := tok.Indent()
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		if baseDepth+len(stack) > MaxDepth {
			p.errorf(tok.Rng, "scene nesting exceeds the maximum depth of %d", MaxDepth)
			return roots
		}
		var parent *ast.SceneNode
		if len(stack) > 0 {
			parent = stack[len(stack)-1].node
			if parent.Call != nil {
				p.errorf(tok.Rng, "scene-macro invocation %q cannot have children", parent.Name)
				return roots
			}
		}

		if tok.Kind != lexer.Ident {
			p.errorf(tok.Rng, "expected a scene node or instruction, found %s", tok.Kind)
			return roots
		}

		if isPascalName(tok.Text) {
			// Instruction attached to the enclosing node.
			if parent == nil {
				p.errorf(tok.Rng, "instruction %q must be inside a scene node", tok.Text)
				return roots
			}
			v := p.parseValue(0)
			if p.failed {
				return roots
			}
			in, ok := v.(*value.Instr)
			if !ok {
				p.errorf(tok.Rng, "%q is not a loadable instruction; instructions are written TypeName(field: value)", tok.Text)
				return roots
			}
			parent.Instrs = append(parent.Instrs, in)
			continue
		}

		node := p.parseSceneLine(tok)
		if p.failed {
			return roots
		}
		if parent != nil {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
		stack = append(stack, openNode{node: node, indent: indent})
	}
	return roots
}

// parseSceneLine parses one node line: a bare name, or a scene-macro
// invocation name(args) / alias.name(args).
func (p *parser) parseSceneLine(head lexer.Token) *ast.SceneNode {
	p.next()
	node := &ast.SceneNode{Fill: head.Fill, Rng: head.Rng, Name: head.Text}

	alias := ""
	if p.cur().Kind == lexer.Dot && !p.cur().NewLine {
		p.next()
		sym, ok := p.expectLowerIdent("scene-macro name")
		if !ok {
			return node
		}
		alias = head.Text
		node.Name = sym.Text
		node.Rng = hcl.RangeBetween(head.Rng, sym.Rng)
	}

	if p.cur().Kind != lexer.LParen || p.cur().NewLine {
		if alias != "" {
			p.errorf(p.cur().Rng, "expected an argument list after scene-macro %s.%s", alias, node.Name)
		}
		return node
	}

	p.next() // '('
	call := &ast.SceneCall{Alias: alias, Args: []value.Arg{}}
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
			p.errorf(p.cur().Rng, "positional argument after named argument in invocation of %q", node.Name)
			return node
		}
		arg.Val = p.parseValue(0)
		if p.failed {
			return node
		}
		call.Args = append(call.Args, arg)
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	close_, ok := p.expect(lexer.RParen, "')'")
	if !ok {
		return node
	}
	node.Call = call
	node.Rng = hcl.RangeBetween(head.Rng, close_.Rng)
	return node
}
