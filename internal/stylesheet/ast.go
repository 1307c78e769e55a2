// Package stylesheet is a small CSS syntax tree used to post-process the
// output of the Sass compiler: parsing, media query merging, vendor
// prefixing, printing, and keeping the source map in step with the printed
// text.
package stylesheet

// Node is a top level or block level item of a stylesheet.
type Node interface {
	// SourceLine is the zero based line the node started on in the parsed
	// text, or -1 when it was created by a transform.
	SourceLine() int
}

// Stylesheet is a parsed CSS file.
type Stylesheet struct {
	Nodes []Node
}

// Rule is a qualified rule: a selector list and its declarations.
type Rule struct {
	Selectors    []string
	Declarations []*Declaration
	Line         int
}

// Declaration is a property: value pair. Custom properties keep their value
// verbatim.
type Declaration struct {
	Property  string
	Value     string
	Important bool
	Line      int
}

// AtRule is an at-rule such as @media or @import. Statement at-rules have no
// block; block at-rules hold rules, declarations or nested at-rules.
type AtRule struct {
	// Name is the at-keyword without the @, e.g. "media".
	Name     string
	Prelude  string
	Block    bool
	Children []Node
	Line     int
}

// Comment is a /* ... */ comment, delimiters included.
type Comment struct {
	Text string
	Line int
}

func (r *Rule) SourceLine() int        { return r.Line }
func (d *Declaration) SourceLine() int { return d.Line }
func (a *AtRule) SourceLine() int      { return a.Line }
func (c *Comment) SourceLine() int     { return c.Line }

// hasDeclaration reports whether decls already declares property with value.
// An empty value matches any value.
func hasDeclaration(decls []*Declaration, property, value string) bool {
	for _, d := range decls {
		if d.Property == property && (value == "" || d.Value == value) {
			return true
		}
	}
	return false
}
