package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Write re-serializes a value into sb. Each node's own fill is emitted
// before its first token; separators and closing brackets are canonical.
// The output is whitespace-equivalent to the source, not byte-identical.
func Write(sb *strings.Builder, v Value) {
	switch t := v.(type) {
	case *None:
		sb.WriteString(t.Fill)
		sb.WriteString("none")
	case *Bool:
		sb.WriteString(t.Fill)
		sb.WriteString(strconv.FormatBool(t.V))
	case *Number:
		sb.WriteString(t.Fill)
		if t.Raw != "" {
			sb.WriteString(t.Raw)
		} else {
			sb.WriteString(formatNumber(t.V))
		}
	case *String:
		sb.WriteString(t.Fill)
		sb.WriteString(Quote(t.V))
	case *Array:
		sb.WriteString(t.Fill)
		sb.WriteString("[")
		writeElems(sb, t.Elems)
		sb.WriteString("]")
	case *Tuple:
		sb.WriteString(t.Fill)
		sb.WriteString("(")
		writeElems(sb, t.Elems)
		if len(t.Elems) == 1 {
			sb.WriteString(",")
		}
		sb.WriteString(")")
	case *Map:
		sb.WriteString(t.Fill)
		sb.WriteString("{")
		for i, e := range t.Entries {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(e.Fill)
			sb.WriteString(e.Key)
			sb.WriteString(":")
			Write(sb, e.Val)
		}
		sb.WriteString("}")
	case *Variant:
		sb.WriteString(t.Fill)
		sb.WriteString(t.Name)
		if t.Payload != nil {
			sb.WriteString("(")
			writeElems(sb, t.Payload)
			sb.WriteString(")")
		}
	case *Builtin:
		sb.WriteString(t.Fill)
		sb.WriteString("@")
		sb.WriteString(t.Type)
		sb.WriteString("(")
		Write(sb, t.Payload)
		sb.WriteString(")")
	case *Instr:
		sb.WriteString(t.Fill)
		sb.WriteString(t.Type)
		if len(t.Generics) > 0 {
			sb.WriteString("<")
			sb.WriteString(strings.Join(t.Generics, ", "))
			sb.WriteString(">")
		}
		sb.WriteString("(")
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(f.Fill)
			sb.WriteString(f.Name)
			sb.WriteString(":")
			Write(sb, f.Val)
		}
		sb.WriteString(")")
	case *Ref:
		sb.WriteString(t.Fill)
		if t.Alias != "" {
			sb.WriteString(t.Alias)
			sb.WriteString(".")
		}
		sb.WriteString(t.Name)
		if t.Args != nil {
			sb.WriteString("(")
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(a.Fill)
				if a.Name != "" {
					sb.WriteString(a.Name)
					sb.WriteString(":")
				}
				Write(sb, a.Val)
			}
			sb.WriteString(")")
		}
	}
}

// Sprint renders a value without surrounding context, trimming fill.
func Sprint(v Value) string {
	var sb strings.Builder
	Write(&sb, v)
	return strings.TrimSpace(sb.String())
}

// Quote renders s as a COB string literal. COB escapes are a subset of
// Go's: \\ \" \n \t \r plus \u{hex} for other control characters.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u{%x}`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeElems(sb *strings.Builder, elems []Value) {
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(",")
		}
		Write(sb, e)
	}
}
