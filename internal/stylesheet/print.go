package stylesheet

import (
	"strings"
)

// Printed is the text of a printed stylesheet together with, for every output
// line, the source line it came from (-1 when there is none).
type Printed struct {
	CSS   string
	Lines []int
}

// Print writes the stylesheet in expanded style: one declaration per line,
// two space indentation, a blank line between top level statements.
func Print(sheet *Stylesheet) Printed {
	p := &printer{}
	for i, n := range sheet.Nodes {
		if i > 0 {
			p.line(0, "", -1)
		}
		p.node(n, 0)
	}
	return Printed{CSS: p.sb.String(), Lines: p.lines}
}

type printer struct {
	sb    strings.Builder
	lines []int
}

func (p *printer) line(depth int, text string, source int) {
	if text != "" {
		p.sb.WriteString(strings.Repeat("  ", depth))
	}
	p.sb.WriteString(text)
	p.sb.WriteByte('\n')
	p.lines = append(p.lines, source)
}

func offset(line, by int) int {
	if line < 0 {
		return -1
	}
	return line + by
}

func (p *printer) node(n Node, depth int) {
	switch n := n.(type) {
	case *Comment:
		for i, l := range strings.Split(n.Text, "\n") {
			if i == 0 {
				p.line(depth, l, n.Line)
				continue
			}
			p.sb.WriteString(l)
			p.sb.WriteByte('\n')
			p.lines = append(p.lines, offset(n.Line, i))
		}

	case *Declaration:
		p.line(depth, n.String(), n.Line)

	case *Rule:
		last := len(n.Selectors) - 1
		for i, sel := range n.Selectors {
			if i < last {
				p.line(depth, sel+",", offset(n.Line, i))
			} else {
				p.line(depth, sel+" {", offset(n.Line, i))
			}
		}
		for _, d := range n.Declarations {
			p.line(depth+1, d.String(), d.Line)
		}
		p.line(depth, "}", -1)

	case *AtRule:
		head := "@" + n.Name
		if n.Prelude != "" {
			head += " " + n.Prelude
		}
		if !n.Block {
			p.line(depth, head+";", n.Line)
			return
		}
		p.line(depth, head+" {", n.Line)
		for _, c := range n.Children {
			p.node(c, depth+1)
		}
		p.line(depth, "}", -1)
	}
}

// String renders the declaration without indentation.
func (d *Declaration) String() string {
	s := d.Property + ": " + d.Value
	if d.Important {
		s += " !important"
	}
	return s + ";"
}
