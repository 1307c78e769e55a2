package stylesheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefixCSS(t *testing.T, src string, queries ...string) string {
	t.Helper()
	if len(queries) == 0 {
		queries = []string{"ie > 9", "safari > 6"}
	}
	targets, err := ParseBrowsers(queries)
	require.NoError(t, err)

	sheet, err := Parse(src)
	require.NoError(t, err)
	NewPrefixer(targets).Apply(sheet)
	return Print(sheet).CSS
}

func TestPrefixFlexbox(t *testing.T) {
	got := prefixCSS(t, `.a{display:flex;justify-content:space-between;align-items:flex-start;flex:1}`)

	want := `.a {
  display: -webkit-flex;
  display: -ms-flexbox;
  display: flex;
  -webkit-justify-content: space-between;
  -ms-flex-pack: justify;
  justify-content: space-between;
  -webkit-align-items: flex-start;
  -ms-flex-align: start;
  align-items: flex-start;
  -webkit-flex: 1;
  -ms-flex: 1;
  flex: 1;
}
`
	assert.Equal(t, want, got)
}

func TestPrefixProperties(t *testing.T) {
	got := prefixCSS(t, `.a{transform:rotate(45deg);user-select:none;transition:opacity 1s;position:sticky;color:red}`)

	want := `.a {
  -webkit-transform: rotate(45deg);
  transform: rotate(45deg);
  -webkit-user-select: none;
  -ms-user-select: none;
  user-select: none;
  transition: opacity 1s;
  position: -webkit-sticky;
  position: sticky;
  color: red;
}
`
	assert.Equal(t, want, got)
}

func TestPrefixKeepsExistingPrefixes(t *testing.T) {
	got := prefixCSS(t, `.a{-webkit-transform:none;transform:rotate(1deg);display:-ms-flexbox;display:flex}`)

	assert.Equal(t, 1, strings.Count(got, "-webkit-transform"))
	assert.Contains(t, got, "-webkit-transform: none;")
	assert.Equal(t, 1, strings.Count(got, "-ms-flexbox"))
	assert.Contains(t, got, "display: -webkit-flex;")
}

func TestPrefixKeyframes(t *testing.T) {
	got := prefixCSS(t, `@keyframes spin{from{transform:rotate(0)}to{transform:rotate(360deg)}}.a{animation:spin 1s}`)

	webkit := strings.Index(got, "@-webkit-keyframes spin {")
	plain := strings.Index(got, "@keyframes spin {")
	require.GreaterOrEqual(t, webkit, 0)
	require.Greater(t, plain, webkit)

	webkitBlock := got[webkit:plain]
	assert.Contains(t, webkitBlock, "-webkit-transform: rotate(360deg);")
	assert.NotContains(t, webkitBlock, "-ms-")
	assert.Contains(t, got, "-webkit-animation: spin 1s;")
}

func TestPrefixKeyframesAlreadyPrefixed(t *testing.T) {
	got := prefixCSS(t, `@-webkit-keyframes x{to{opacity:1}}@keyframes x{to{opacity:1}}`)
	assert.Equal(t, 1, strings.Count(got, "@-webkit-keyframes x"))
}

func TestPrefixPlaceholder(t *testing.T) {
	got := prefixCSS(t, `input::placeholder,.b{color:gray}`)

	webkit := strings.Index(got, "input::-webkit-input-placeholder {")
	ms := strings.Index(got, "input:-ms-input-placeholder {")
	plain := strings.Index(got, "input::placeholder,")
	require.GreaterOrEqual(t, webkit, 0)
	assert.Greater(t, ms, webkit)
	assert.Greater(t, plain, ms)
	assert.NotContains(t, got, "-moz-placeholder")
}

func TestPrefixModernTargets(t *testing.T) {
	src := `.a{display:flex;transform:none;user-select:none}`
	got := prefixCSS(t, src, "chrome >= 120", "firefox >= 120")

	assert.NotContains(t, got, "-webkit-flex")
	assert.NotContains(t, got, "-webkit-transform")
	assert.NotContains(t, got, "-moz-")
	assert.NotContains(t, got, "-ms-")
}

func TestPrefixTransitionValue(t *testing.T) {
	got := prefixCSS(t, `.a{transition:transform 1s, opacity 1s}`, "safari >= 6")
	assert.Contains(t, got, "-webkit-transition: -webkit-transform 1s, opacity 1s;")
	assert.Contains(t, got, "\n  transition: transform 1s, opacity 1s;")
}

func TestPrefixedDeclarationsKeepSourceLine(t *testing.T) {
	targets, err := ParseBrowsers([]string{"safari > 6"})
	require.NoError(t, err)
	sheet, err := Parse(".a {\n  transform: none;\n}\n")
	require.NoError(t, err)

	NewPrefixer(targets).Apply(sheet)
	decls := sheet.Nodes[0].(*Rule).Declarations
	require.Len(t, decls, 2)
	assert.Equal(t, 1, decls[0].Line)
	assert.Equal(t, 1, decls[1].Line)
}
