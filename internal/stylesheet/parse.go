package stylesheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Parse builds a Stylesheet from CSS text. Every node records the line it
// started on so source maps can follow the nodes through later transforms.
func Parse(src string) (*Stylesheet, error) {
	p := css.NewParser(parse.NewInputString(src), false)
	loc := &locator{src: src}

	sheet := &Stylesheet{}
	var (
		stack     []*AtRule
		rule      *Rule
		selectors []string
	)

	appendNode := func(n Node) {
		if len(stack) == 0 {
			sheet.Nodes = append(sheet.Nodes, n)
			return
		}
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err != io.EOF {
				return nil, fmt.Errorf("parse css: %w", err)
			}
			if len(stack) > 0 || rule != nil {
				return nil, fmt.Errorf("parse css: unexpected end of input")
			}
			return sheet, nil

		case css.CommentGrammar:
			text := string(data)
			appendNode(&Comment{Text: text, Line: loc.find(text)})

		case css.AtRuleGrammar, css.BeginAtRuleGrammar:
			name := strings.TrimPrefix(string(data), "@")
			at := &AtRule{
				Name:    strings.ToLower(name),
				Prelude: joinTokens(p.Values(), preludeTokens),
				Block:   gt == css.BeginAtRuleGrammar,
				Line:    loc.find(string(data)),
			}
			appendNode(at)
			if at.Block {
				stack = append(stack, at)
			}

		case css.EndAtRuleGrammar:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse css: unbalanced }")
			}
			stack = stack[:len(stack)-1]

		case css.QualifiedRuleGrammar:
			selectors = append(selectors, joinTokens(p.Values(), selectorTokens))

		case css.BeginRulesetGrammar:
			selectors = append(selectors, joinTokens(p.Values(), selectorTokens))
			rule = &Rule{Selectors: selectors, Line: loc.find(firstWord(selectors[0]))}
			selectors = nil
			appendNode(rule)

		case css.EndRulesetGrammar:
			rule = nil

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decl := declaration(string(data), p.Values(), gt == css.CustomPropertyGrammar)
			decl.Line = loc.find(string(data))
			if rule != nil {
				rule.Declarations = append(rule.Declarations, decl)
			} else {
				appendNode(decl)
			}
		}
	}
}

func declaration(property string, values []css.Token, custom bool) *Declaration {
	if custom {
		var sb strings.Builder
		for _, t := range values {
			sb.Write(t.Data)
		}
		return &Declaration{Property: property, Value: strings.TrimSpace(sb.String())}
	}

	important := false
	end := len(values)
	for end > 0 && values[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	if end > 0 && values[end-1].TokenType == css.IdentToken && strings.EqualFold(string(values[end-1].Data), "important") {
		i := end - 1
		for i > 0 && values[i-1].TokenType == css.WhitespaceToken {
			i--
		}
		if i > 0 && values[i-1].TokenType == css.DelimToken && string(values[i-1].Data) == "!" {
			important = true
			end = i - 1
		}
	}

	return &Declaration{
		Property:  strings.ToLower(property),
		Value:     joinTokens(values[:end], valueTokens),
		Important: important,
	}
}

// tokenContext selects the spacing rules of joinTokens.
type tokenContext int

const (
	valueTokens tokenContext = iota
	selectorTokens
	preludeTokens
)

// joinTokens concatenates tokens, folding whitespace runs to one space. The
// parser drops whitespace next to some delimiters, so the expanded spacing is
// put back: one space after ',', around selector combinators and '+' in
// values, and after ':' inside at-rule parentheses.
func joinTokens(tokens []css.Token, ctx tokenContext) string {
	var sb strings.Builder
	space := false
	depth := 0
	prev := css.ErrorToken
	for _, t := range tokens {
		tt := t.TokenType
		if tt == css.WhitespaceToken {
			space = true
			continue
		}

		around := spacedDelim(t, ctx)
		switch {
		case tt == css.CommaToken:
			space = false
		case ctx == preludeTokens && tt == css.LeftParenthesisToken && prev == css.IdentToken,
			ctx == preludeTokens && tt == css.IdentToken && prev == css.RightParenthesisToken:
			space = true
		}
		if (space || around) && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.Write(t.Data)
		space = around

		switch tt {
		case css.CommaToken:
			space = true
		case css.ColonToken:
			space = ctx == preludeTokens && depth > 0
		case css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
		}
		prev = tt
	}
	return sb.String()
}

func spacedDelim(t css.Token, ctx tokenContext) bool {
	if t.TokenType != css.DelimToken || len(t.Data) != 1 {
		return false
	}
	switch ctx {
	case selectorTokens:
		return t.Data[0] == '>' || t.Data[0] == '+' || t.Data[0] == '~'
	case valueTokens:
		return t.Data[0] == '+'
	}
	return false
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t\n"); i > 0 {
		return s[:i]
	}
	return s
}

// locator finds node keys in the source in order and reports their line.
type locator struct {
	src  string
	pos  int
	line int
}

func (l *locator) find(key string) int {
	if key == "" {
		return -1
	}
	i := strings.Index(l.src[l.pos:], key)
	if i < 0 {
		return -1
	}
	start := l.line + strings.Count(l.src[l.pos:l.pos+i], "\n")
	l.line = start + strings.Count(key, "\n")
	l.pos += i + len(key)
	return start
}
