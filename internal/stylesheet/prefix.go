package stylesheet

import (
	"regexp"
	"strings"
)

// since maps a browser to the first version that supports a feature without
// a prefix. Zero means the prefix is still required in every version.
type since map[string]float64

var (
	webkitFlex      = since{"safari": 9, "ios_saf": 9, "chrome": 29, "android": 4.4, "opera": 17}
	msFlex          = since{"ie": 11}
	webkitTransform = since{"safari": 9, "ios_saf": 9, "chrome": 36, "android": 5, "opera": 23}
	webkitAnimation = since{"safari": 9, "ios_saf": 9, "chrome": 43, "android": 5, "opera": 30}
	webkitColumns   = since{"safari": 9, "ios_saf": 9, "chrome": 50, "android": 50, "opera": 37}
	mozColumns      = since{"firefox": 52}
	webkitMask      = since{"safari": 15.4, "ios_saf": 15.4, "chrome": 120, "android": 120, "edge": 120, "opera": 106}
)

// propertyPrefix adds a prefixed copy of a declaration.
type propertyPrefix struct {
	prefix string
	since  since
	// name replaces prefix+property when the prefixed property was spelled
	// differently, as in the IE 10 flexbox draft.
	name string
	// values rewrites keyword values for renamed properties. A value mapped
	// to "" has no prefixed equivalent.
	values map[string]string
}

var (
	msPackValues  = map[string]string{"flex-start": "start", "flex-end": "end", "space-between": "justify", "space-around": "distribute", "space-evenly": ""}
	msAlignValues = map[string]string{"flex-start": "start", "flex-end": "end"}
)

func flexProperty(msName string, values map[string]string) []propertyPrefix {
	return []propertyPrefix{
		{prefix: "-webkit-", since: webkitFlex},
		{prefix: "-ms-", since: msFlex, name: msName, values: values},
	}
}

func webkitOnly(s since) []propertyPrefix {
	return []propertyPrefix{{prefix: "-webkit-", since: s}}
}

var propertyPrefixes = map[string][]propertyPrefix{
	"flex":            flexProperty("-ms-flex", nil),
	"flex-grow":       flexProperty("-ms-flex-positive", nil),
	"flex-shrink":     flexProperty("-ms-flex-negative", nil),
	"flex-basis":      flexProperty("-ms-flex-preferred-size", nil),
	"flex-direction":  flexProperty("-ms-flex-direction", nil),
	"flex-wrap":       flexProperty("-ms-flex-wrap", nil),
	"flex-flow":       flexProperty("-ms-flex-flow", nil),
	"order":           flexProperty("-ms-flex-order", nil),
	"justify-content": flexProperty("-ms-flex-pack", msPackValues),
	"align-items":     flexProperty("-ms-flex-align", msAlignValues),
	"align-self":      flexProperty("-ms-flex-item-align", msAlignValues),
	"align-content":   flexProperty("-ms-flex-line-pack", msPackValues),

	"transform":           {{prefix: "-webkit-", since: webkitTransform}, {prefix: "-ms-", since: since{"ie": 10}}},
	"transform-origin":    {{prefix: "-webkit-", since: webkitTransform}, {prefix: "-ms-", since: since{"ie": 10}}},
	"transform-style":     webkitOnly(webkitTransform),
	"perspective":         webkitOnly(webkitTransform),
	"perspective-origin":  webkitOnly(webkitTransform),
	"backface-visibility": webkitOnly(since{"safari": 15.4, "ios_saf": 15.4, "chrome": 36, "android": 5}),

	"transition":                 webkitOnly(since{"safari": 6.1, "ios_saf": 7, "chrome": 26, "android": 4.4}),
	"transition-property":        webkitOnly(since{"safari": 6.1, "ios_saf": 7, "chrome": 26, "android": 4.4}),
	"transition-duration":        webkitOnly(since{"safari": 6.1, "ios_saf": 7, "chrome": 26, "android": 4.4}),
	"transition-timing-function": webkitOnly(since{"safari": 6.1, "ios_saf": 7, "chrome": 26, "android": 4.4}),
	"transition-delay":           webkitOnly(since{"safari": 6.1, "ios_saf": 7, "chrome": 26, "android": 4.4}),

	"animation":                 webkitOnly(webkitAnimation),
	"animation-name":            webkitOnly(webkitAnimation),
	"animation-duration":        webkitOnly(webkitAnimation),
	"animation-timing-function": webkitOnly(webkitAnimation),
	"animation-delay":           webkitOnly(webkitAnimation),
	"animation-iteration-count": webkitOnly(webkitAnimation),
	"animation-direction":       webkitOnly(webkitAnimation),
	"animation-fill-mode":       webkitOnly(webkitAnimation),
	"animation-play-state":      webkitOnly(webkitAnimation),

	"user-select": {
		{prefix: "-webkit-", since: since{"safari": 0, "ios_saf": 0, "chrome": 54, "android": 54, "opera": 41}},
		{prefix: "-moz-", since: since{"firefox": 69}},
		{prefix: "-ms-", since: since{"ie": 0, "edge": 79}},
	},
	"appearance": {
		{prefix: "-webkit-", since: since{"safari": 15.4, "ios_saf": 15.4, "chrome": 84, "android": 84, "edge": 84, "opera": 70}},
		{prefix: "-moz-", since: since{"firefox": 80}},
	},
	"filter": webkitOnly(since{"safari": 9.1, "ios_saf": 10, "chrome": 53, "android": 53, "opera": 40}),
	"hyphens": {
		{prefix: "-webkit-", since: since{"safari": 17, "ios_saf": 17}},
		{prefix: "-moz-", since: since{"firefox": 43}},
		{prefix: "-ms-", since: since{"ie": 0, "edge": 79}},
	},
	"text-size-adjust": {
		{prefix: "-webkit-", since: since{"ios_saf": 0}},
		{prefix: "-ms-", since: since{"edge": 79}},
	},

	"mask":          webkitOnly(webkitMask),
	"mask-image":    webkitOnly(webkitMask),
	"mask-size":     webkitOnly(webkitMask),
	"mask-position": webkitOnly(webkitMask),
	"mask-repeat":   webkitOnly(webkitMask),
	"mask-clip":     webkitOnly(webkitMask),
	"mask-origin":   webkitOnly(webkitMask),

	"columns":      {{prefix: "-webkit-", since: webkitColumns}, {prefix: "-moz-", since: mozColumns}},
	"column-count": {{prefix: "-webkit-", since: webkitColumns}, {prefix: "-moz-", since: mozColumns}},
	"column-gap":   {{prefix: "-webkit-", since: webkitColumns}, {prefix: "-moz-", since: mozColumns}},
	"column-width": {{prefix: "-webkit-", since: webkitColumns}, {prefix: "-moz-", since: mozColumns}},
	"column-rule":  {{prefix: "-webkit-", since: webkitColumns}, {prefix: "-moz-", since: mozColumns}},
	"column-fill":  {{prefix: "-webkit-", since: webkitColumns}, {prefix: "-moz-", since: mozColumns}},
	"column-span":  {{prefix: "-webkit-", since: webkitColumns}},
}

// valuePrefix adds a copy of a declaration with a prefixed keyword value.
type valuePrefix struct {
	value string
	since since
}

var valuePrefixes = map[string]map[string][]valuePrefix{
	"display": {
		"flex":        {{"-webkit-flex", webkitFlex}, {"-ms-flexbox", msFlex}},
		"inline-flex": {{"-webkit-inline-flex", webkitFlex}, {"-ms-inline-flexbox", msFlex}},
	},
	"position": {
		"sticky": {{"-webkit-sticky", since{"safari": 13, "ios_saf": 13}}},
	},
}

// selectorPrefix duplicates a rule for a prefixed pseudo-element. Browsers
// drop a whole selector list they cannot parse, so each prefixed form gets
// its own rule.
type selectorPrefix struct {
	pseudo   string
	prefixed string
	since    since
}

var selectorPrefixes = []selectorPrefix{
	{"::placeholder", "::-webkit-input-placeholder", since{"safari": 10.1, "ios_saf": 11, "chrome": 57, "android": 57, "opera": 44}},
	{"::placeholder", "::-moz-placeholder", since{"firefox": 51}},
	{"::placeholder", ":-ms-input-placeholder", since{"ie": 0}},
	{"::placeholder", "::-ms-input-placeholder", since{"edge": 79}},
	{"::selection", "::-moz-selection", since{"firefox": 62}},
}

var webkitKeyframes = webkitAnimation

var transformWord = regexp.MustCompile(`(^|[\s,])transform\b`)

// Prefixer adds the vendor prefixes a set of target browsers needs.
// Prefixed copies go before the standard declaration, and nothing is added
// when the prefixed form is already present.
type Prefixer struct {
	targets Targets
}

// NewPrefixer creates a Prefixer for targets.
func NewPrefixer(targets Targets) *Prefixer {
	return &Prefixer{targets: targets}
}

// Apply prefixes the stylesheet in place.
func (p *Prefixer) Apply(sheet *Stylesheet) {
	sheet.Nodes = p.nodes(sheet.Nodes, "")
}

// nodes prefixes a node list. When only is set, just that prefix is added,
// as inside @-webkit-keyframes.
func (p *Prefixer) nodes(nodes []Node, only string) []Node {
	out := make([]Node, 0, len(nodes))
	var loose []*Declaration

	for _, n := range nodes {
		switch n := n.(type) {
		case *Rule:
			for _, copied := range p.selectorCopies(n, nodes, only) {
				copied.Declarations = p.declarations(copied.Declarations, only)
				out = append(out, copied)
			}
			n.Declarations = p.declarations(n.Declarations, only)
			out = append(out, n)

		case *AtRule:
			if n.Block && n.Name == "keyframes" && (only == "" || only == "-webkit-") &&
				p.targets.needs(webkitKeyframes) && !hasAtRule(nodes, "-webkit-keyframes", n.Prelude) {
				copied := cloneAtRule(n)
				copied.Name = "-webkit-keyframes"
				copied.Children = p.nodes(copied.Children, "-webkit-")
				out = append(out, copied)
			}
			if n.Block {
				inner := only
				if strings.HasPrefix(n.Name, "-webkit-") {
					inner = "-webkit-"
				}
				n.Children = p.nodes(n.Children, inner)
			}
			out = append(out, n)

		case *Declaration:
			if loose == nil {
				loose = declarationsOf(nodes)
			}
			for _, extra := range p.prefixed(n, only) {
				if !present(loose, out, extra) {
					out = append(out, extra.decl)
				}
			}
			out = append(out, n)

		default:
			out = append(out, n)
		}
	}
	return out
}

func (p *Prefixer) declarations(decls []*Declaration, only string) []*Declaration {
	out := make([]*Declaration, 0, len(decls))
	for _, d := range decls {
		for _, extra := range p.prefixed(d, only) {
			if !hasExtra(decls, extra) && !hasExtra(out, extra) {
				out = append(out, extra.decl)
			}
		}
		out = append(out, d)
	}
	return out
}

// extra is a prefixed declaration. byValue marks keyword value prefixes,
// which only clash with the same property and value.
type extra struct {
	decl    *Declaration
	byValue bool
}

func hasExtra(decls []*Declaration, e extra) bool {
	if e.byValue {
		return hasDeclaration(decls, e.decl.Property, e.decl.Value)
	}
	return hasDeclaration(decls, e.decl.Property, "")
}

func present(siblings []*Declaration, out []Node, e extra) bool {
	return hasExtra(siblings, e) || hasExtra(declarationsOf(out), e)
}

func declarationsOf(nodes []Node) []*Declaration {
	var decls []*Declaration
	for _, n := range nodes {
		if d, ok := n.(*Declaration); ok {
			decls = append(decls, d)
		}
	}
	return decls
}

func (p *Prefixer) prefixed(d *Declaration, only string) []extra {
	if strings.HasPrefix(d.Property, "-") {
		return nil
	}

	var out []extra
	for _, rule := range propertyPrefixes[d.Property] {
		if (only != "" && rule.prefix != only) || !p.targets.needs(rule.since) {
			continue
		}

		name := rule.name
		if name == "" {
			name = rule.prefix + d.Property
		}
		value := d.Value
		if mapped, ok := rule.values[strings.ToLower(value)]; ok {
			if mapped == "" {
				continue
			}
			value = mapped
		}
		if rule.prefix == "-webkit-" && strings.HasPrefix(d.Property, "transition") &&
			p.targets.needs(webkitTransform) {
			value = transformWord.ReplaceAllString(value, "${1}-webkit-transform")
		}

		out = append(out, extra{decl: &Declaration{Property: name, Value: value, Important: d.Important, Line: d.Line}})
	}

	for _, vp := range valuePrefixes[d.Property][strings.ToLower(d.Value)] {
		if only != "" && !strings.HasPrefix(vp.value, only) {
			continue
		}
		if !p.targets.needs(vp.since) {
			continue
		}
		out = append(out, extra{
			decl:    &Declaration{Property: d.Property, Value: vp.value, Important: d.Important, Line: d.Line},
			byValue: true,
		})
	}
	return out
}

func (p *Prefixer) selectorCopies(r *Rule, siblings []Node, only string) []*Rule {
	var out []*Rule
	for _, sp := range selectorPrefixes {
		if only != "" || !p.targets.needs(sp.since) {
			continue
		}

		var selectors []string
		for _, sel := range r.Selectors {
			if strings.Contains(sel, sp.pseudo) {
				selectors = append(selectors, strings.ReplaceAll(sel, sp.pseudo, sp.prefixed))
			}
		}
		if len(selectors) == 0 || hasRule(siblings, selectors) {
			continue
		}

		copied := cloneRule(r)
		copied.Selectors = selectors
		out = append(out, copied)
	}
	return out
}

func hasRule(nodes []Node, selectors []string) bool {
	want := strings.Join(selectors, ",")
	for _, n := range nodes {
		if r, ok := n.(*Rule); ok && strings.Join(r.Selectors, ",") == want {
			return true
		}
	}
	return false
}

func hasAtRule(nodes []Node, name, prelude string) bool {
	for _, n := range nodes {
		if at, ok := n.(*AtRule); ok && at.Name == name && at.Prelude == prelude {
			return true
		}
	}
	return false
}

func cloneRule(r *Rule) *Rule {
	c := &Rule{Selectors: append([]string(nil), r.Selectors...), Line: r.Line}
	for _, d := range r.Declarations {
		copied := *d
		c.Declarations = append(c.Declarations, &copied)
	}
	return c
}

func cloneAtRule(a *AtRule) *AtRule {
	c := &AtRule{Name: a.Name, Prelude: a.Prelude, Block: a.Block, Line: a.Line}
	for _, n := range a.Children {
		c.Children = append(c.Children, cloneNode(n))
	}
	return c
}

func cloneNode(n Node) Node {
	switch n := n.(type) {
	case *Rule:
		return cloneRule(n)
	case *AtRule:
		return cloneAtRule(n)
	case *Declaration:
		copied := *n
		return &copied
	case *Comment:
		copied := *n
		return &copied
	}
	return n
}
