package stylesheet

import (
	"strings"
)

// MergeEvent describes one @media block folded into an earlier one.
type MergeEvent struct {
	Query string
	// Line is the source line of the block that was folded in.
	Line int
}

// MergeMediaQueries gathers every top level @media block that shares a
// query with another one into a single block. The merged blocks are moved
// after all other statements, in the order their queries first appeared;
// the contents keep their original order. onMerge, when set, is called for
// every block that was folded into an earlier one.
func MergeMediaQueries(sheet *Stylesheet, onMerge func(MergeEvent)) {
	var (
		rest    []Node
		order   []string
		byQuery = make(map[string]*AtRule)
	)

	for _, n := range sheet.Nodes {
		at, ok := n.(*AtRule)
		if !ok || at.Name != "media" || !at.Block {
			rest = append(rest, n)
			continue
		}

		key := normalizeQuery(at.Prelude)
		merged, seen := byQuery[key]
		if !seen {
			merged = &AtRule{Name: "media", Prelude: at.Prelude, Block: true, Line: at.Line}
			byQuery[key] = merged
			order = append(order, key)
		} else if onMerge != nil {
			onMerge(MergeEvent{Query: at.Prelude, Line: at.Line})
		}
		merged.Children = append(merged.Children, at.Children...)
	}

	for _, key := range order {
		rest = append(rest, byQuery[key])
	}
	sheet.Nodes = rest
}

// normalizeQuery makes spelling differences that do not change a query's
// meaning compare equal: case, whitespace and spacing around ':' and ','.
func normalizeQuery(q string) string {
	q = strings.ToLower(strings.Join(strings.Fields(q), " "))
	for _, r := range []struct{ old, new string }{
		{" :", ":"}, {": ", ":"}, {" ,", ","}, {", ", ","}, {"( ", "("}, {" )", ")"},
	} {
		q = strings.ReplaceAll(q, r.old, r.new)
	}
	return q
}
