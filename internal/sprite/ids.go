package sprite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

var urlRefPattern = regexp.MustCompile(`url\(\s*(['"]?)#([^'")\s]+)(['"]?)\s*\)`)

// idGenerator yields the short identifiers used when ids are minified:
// a..z, A..Z, aa, ab, ...
type idGenerator struct {
	n int
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func (g *idGenerator) next() string {
	n := g.n
	g.n++

	var b []byte
	for {
		b = append([]byte{idAlphabet[n%len(idAlphabet)]}, b...)
		n = n/len(idAlphabet) - 1
		if n < 0 {
			break
		}
	}
	return string(b)
}

// prefixIDs renames every id under root to prefix+id (or prefix+short id when
// minify is set) and rewrites all local references to match. Ids are minted
// in document order. A candidate already in used is skipped (minified) or
// given a numeric suffix, and every id handed out is added to used. It
// returns the old -> new mapping.
func prefixIDs(root *etree.Element, prefix string, minify bool, used map[string]bool) map[string]string {
	elements := descendants(root)

	mapping := make(map[string]string)
	gen := &idGenerator{}
	for _, el := range elements {
		attr := el.SelectAttr("id")
		if attr == nil || attr.Value == "" {
			continue
		}
		newID, ok := mapping[attr.Value]
		if !ok {
			if minify {
				newID = prefix + gen.next()
				for used[newID] {
					newID = prefix + gen.next()
				}
			} else {
				newID = prefix + attr.Value
				for n := 2; used[newID]; n++ {
					newID = fmt.Sprintf("%s%s-%d", prefix, attr.Value, n)
				}
			}
			mapping[attr.Value] = newID
			used[newID] = true
		}
		attr.Value = newID
	}

	if len(mapping) == 0 {
		return mapping
	}

	for _, el := range elements {
		for i := range el.Attr {
			attr := &el.Attr[i]
			if attr.Space == "" && attr.Key == "id" {
				continue
			}
			attr.Value = rewriteReference(attr.Key, attr.Value, mapping)
		}
		if el.Tag == "style" {
			if text := el.Text(); text != "" {
				el.SetText(rewriteURLs(text, mapping))
			}
		}
	}

	return mapping
}

func rewriteReference(key, value string, mapping map[string]string) string {
	if key == "href" && strings.HasPrefix(value, "#") {
		if newID, ok := mapping[value[1:]]; ok {
			return "#" + newID
		}
		return value
	}
	if strings.Contains(value, "url(") {
		return rewriteURLs(value, mapping)
	}
	return value
}

func rewriteURLs(value string, mapping map[string]string) string {
	return urlRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := urlRefPattern.FindStringSubmatch(match)
		newID, ok := mapping[parts[2]]
		if !ok {
			return match
		}
		return "url(" + parts[1] + "#" + newID + parts[3] + ")"
	})
}

// descendants returns root and every element below it in document order.
func descendants(root *etree.Element) []*etree.Element {
	out := []*etree.Element{root}
	for _, child := range root.ChildElements() {
		out = append(out, descendants(child)...)
	}
	return out
}
