package render

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// inlineElements flow with text and stay on their parent's line.
var inlineElements = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
	atom.Br: true, atom.Button: true, atom.Cite: true, atom.Code: true,
	atom.Data: true, atom.Dfn: true, atom.Em: true, atom.I: true, atom.Img: true,
	atom.Input: true, atom.Kbd: true, atom.Label: true, atom.Mark: true,
	atom.Q: true, atom.S: true, atom.Samp: true, atom.Select: true,
	atom.Small: true, atom.Span: true, atom.Strong: true, atom.Sub: true,
	atom.Sup: true, atom.Time: true, atom.U: true, atom.Var: true, atom.Wbr: true,
}

// preserved elements keep their content byte for byte.
var preserved = map[atom.Atom]bool{
	atom.Pre: true, atom.Textarea: true, atom.Script: true, atom.Style: true,
}

var (
	documentPattern = regexp.MustCompile(`(?i)^\s*(<!doctype|<html)`)
	spaceRun        = regexp.MustCompile(`\s+`)
)

// Prettify re-indents an HTML document (or fragment) with indent spaces per
// level. Block elements start on their own line; an element whose children
// are all text or inline elements is kept on one line.
func Prettify(src string, indent int) (string, error) {
	var nodes []*html.Node
	if documentPattern.MatchString(src) {
		doc, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return "", err
		}
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
	} else {
		body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		frag, err := html.ParseFragment(strings.NewReader(src), body)
		if err != nil {
			return "", err
		}
		nodes = frag
	}

	p := &printer{unit: strings.Repeat(" ", indent)}
	for _, n := range nodes {
		if err := p.node(n, 0); err != nil {
			return "", err
		}
	}
	return p.buf.String(), nil
}

type printer struct {
	buf  bytes.Buffer
	unit string
}

func (p *printer) line(depth int, s string) {
	for i := 0; i < depth; i++ {
		p.buf.WriteString(p.unit)
	}
	p.buf.WriteString(s)
	p.buf.WriteByte('\n')
}

func (p *printer) node(n *html.Node, depth int) error {
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(spaceRun.ReplaceAllString(n.Data, " "))
		if text != "" {
			p.line(depth, html.EscapeString(text))
		}
		return nil
	case html.ElementNode:
	default:
		s, err := render(n)
		if err != nil {
			return err
		}
		p.line(depth, s)
		return nil
	}

	if n.FirstChild == nil || preserved[n.DataAtom] || inlineOnly(n) {
		s, err := render(n)
		if err != nil {
			return err
		}
		if !preserved[n.DataAtom] {
			s = collapse(s)
		}
		p.line(depth, s)
		return nil
	}

	p.line(depth, startTag(n))
	// Adjacent text and inline elements share one line so no whitespace is
	// added between them.
	var run []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if flowsInline(c) {
			run = append(run, c)
			continue
		}
		if err := p.inlineRun(run, depth+1); err != nil {
			return err
		}
		run = run[:0]
		if err := p.node(c, depth+1); err != nil {
			return err
		}
	}
	if err := p.inlineRun(run, depth+1); err != nil {
		return err
	}
	p.line(depth, "</"+n.Data+">")
	return nil
}

func (p *printer) inlineRun(run []*html.Node, depth int) error {
	var buf bytes.Buffer
	for _, n := range run {
		if err := html.Render(&buf, n); err != nil {
			return err
		}
	}
	if s := collapse(buf.String()); s != "" {
		p.line(depth, s)
	}
	return nil
}

func flowsInline(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		return inlineElements[n.DataAtom] && inlineOnly(n)
	}
	return false
}

// inlineOnly reports whether every descendant is text or an inline element.
func inlineOnly(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
		case html.ElementNode:
			if !inlineElements[c.DataAtom] || !inlineOnly(c) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func startTag(n *html.Node) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		sb.WriteByte(' ')
		if a.Namespace != "" {
			sb.WriteString(a.Namespace)
			sb.WriteByte(':')
		}
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.Val))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	return sb.String()
}

func render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
