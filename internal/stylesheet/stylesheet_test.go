package stylesheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSS = `@charset "UTF-8";
/* header */
.a,
.b > .c {
  color: red;
  margin: 0 auto !important;
  --gap: 4px;
}
@media (max-width: 600px) {
  .a {
    color: blue;
  }
}
`

func TestParse(t *testing.T) {
	sheet, err := Parse(sampleCSS)
	require.NoError(t, err)
	require.Len(t, sheet.Nodes, 4)

	charset, ok := sheet.Nodes[0].(*AtRule)
	require.True(t, ok)
	assert.Equal(t, "charset", charset.Name)
	assert.Equal(t, `"UTF-8"`, charset.Prelude)
	assert.False(t, charset.Block)
	assert.Equal(t, 0, charset.Line)

	comment, ok := sheet.Nodes[1].(*Comment)
	require.True(t, ok)
	assert.Equal(t, "/* header */", comment.Text)
	assert.Equal(t, 1, comment.Line)

	rule, ok := sheet.Nodes[2].(*Rule)
	require.True(t, ok)
	assert.Equal(t, []string{".a", ".b > .c"}, rule.Selectors)
	assert.Equal(t, 2, rule.Line)
	require.Len(t, rule.Declarations, 3)
	assert.Equal(t, &Declaration{Property: "color", Value: "red", Line: 4}, rule.Declarations[0])
	assert.Equal(t, &Declaration{Property: "margin", Value: "0 auto", Important: true, Line: 5}, rule.Declarations[1])
	assert.Equal(t, "--gap", rule.Declarations[2].Property)
	assert.Equal(t, "4px", rule.Declarations[2].Value)

	media, ok := sheet.Nodes[3].(*AtRule)
	require.True(t, ok)
	assert.Equal(t, "media", media.Name)
	assert.Equal(t, "(max-width: 600px)", media.Prelude)
	assert.Equal(t, 8, media.Line)
	require.Len(t, media.Children, 1)
	inner := media.Children[0].(*Rule)
	assert.Equal(t, 9, inner.Line)
	assert.Equal(t, 10, inner.Declarations[0].Line)
}

func TestPrint(t *testing.T) {
	sheet, err := Parse(sampleCSS)
	require.NoError(t, err)

	printed := Print(sheet)
	want := `@charset "UTF-8";

/* header */

.a,
.b > .c {
  color: red;
  margin: 0 auto !important;
  --gap: 4px;
}

@media (max-width: 600px) {
  .a {
    color: blue;
  }
}
`
	assert.Equal(t, want, printed.CSS)
	assert.Equal(t, []int{0, -1, 1, -1, 2, 3, 4, 5, 6, -1, -1, 8, 9, 10, -1, -1}, printed.Lines)
	assert.Equal(t, strings.Count(printed.CSS, "\n"), len(printed.Lines))
}

func TestParseRestoresExpandedSpacing(t *testing.T) {
	sheet, err := Parse(`.b>.c,.c+.d,.e~.f,a:hover{transition:transform 1s,opacity 1s;grid-template-columns:repeat(2,1fr);width:calc(1px + 2px)}
@media screen and (max-width:600px),print{.a{color:red}}
@supports (display:grid)and (gap:1px){.a{color:red}}`)
	require.NoError(t, err)

	rule := sheet.Nodes[0].(*Rule)
	assert.Equal(t, []string{".b > .c", ".c + .d", ".e ~ .f", "a:hover"}, rule.Selectors)
	assert.Equal(t, "transform 1s, opacity 1s", rule.Declarations[0].Value)
	assert.Equal(t, "repeat(2, 1fr)", rule.Declarations[1].Value)
	assert.Equal(t, "calc(1px + 2px)", rule.Declarations[2].Value)

	assert.Equal(t, "screen and (max-width: 600px), print", sheet.Nodes[1].(*AtRule).Prelude)
	assert.Equal(t, "(display: grid) and (gap: 1px)", sheet.Nodes[2].(*AtRule).Prelude)
}

func TestPrintIsStable(t *testing.T) {
	sheet, err := Parse(sampleCSS)
	require.NoError(t, err)
	first := Print(sheet).CSS

	again, err := Parse(first)
	require.NoError(t, err)
	assert.Equal(t, first, Print(again).CSS)
}

func TestMergeMediaQueries(t *testing.T) {
	sheet, err := Parse(`.a{color:red}
@media (max-width:600px){.a{color:blue}}
.b{color:green}
@media print{.c{display:none}}
@media (max-width: 600px){.b{color:black}}
`)
	require.NoError(t, err)

	var events []MergeEvent
	MergeMediaQueries(sheet, func(e MergeEvent) { events = append(events, e) })

	require.Len(t, sheet.Nodes, 4)
	assert.Equal(t, []string{".a"}, sheet.Nodes[0].(*Rule).Selectors)
	assert.Equal(t, []string{".b"}, sheet.Nodes[1].(*Rule).Selectors)

	merged := sheet.Nodes[2].(*AtRule)
	assert.Equal(t, "(max-width: 600px)", merged.Prelude)
	require.Len(t, merged.Children, 2)
	assert.Equal(t, []string{".a"}, merged.Children[0].(*Rule).Selectors)
	assert.Equal(t, []string{".b"}, merged.Children[1].(*Rule).Selectors)

	assert.Equal(t, "print", sheet.Nodes[3].(*AtRule).Prelude)

	require.Len(t, events, 1)
	assert.Equal(t, "(max-width: 600px)", events[0].Query)
	assert.Equal(t, 4, events[0].Line)

	css := Print(sheet).CSS
	assert.Equal(t, 1, strings.Count(css, "@media (max-width"))
}

func TestMergeMediaQueriesLeavesNestedBlocks(t *testing.T) {
	sheet, err := Parse(`@supports (display:grid){@media print{.a{color:red}}}
@media print{.b{color:red}}`)
	require.NoError(t, err)

	MergeMediaQueries(sheet, nil)
	require.Len(t, sheet.Nodes, 2)
	assert.Equal(t, "supports", sheet.Nodes[0].(*AtRule).Name)
	assert.Len(t, sheet.Nodes[1].(*AtRule).Children, 1)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, normalizeQuery("(max-width:600px)"), normalizeQuery("( MAX-WIDTH : 600px )"))
	assert.Equal(t, normalizeQuery("screen and (min-width: 1px), print"), normalizeQuery("screen  and (min-width:1px) ,print"))
	assert.NotEqual(t, normalizeQuery("(max-width: 600px)"), normalizeQuery("(max-width: 601px)"))
}
