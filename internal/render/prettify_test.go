package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettifyDocument(t *testing.T) {
	src := `<!DOCTYPE html><html><head><title>Home</title></head><body><div class="wrap"><p>Hello <b>there</b></p><ul><li>one</li><li>two</li></ul></div></body></html>`

	got, err := Prettify(src, 4)
	require.NoError(t, err)

	want := `<!DOCTYPE html>
<html>
    <head>
        <title>Home</title>
    </head>
    <body>
        <div class="wrap">
            <p>Hello <b>there</b></p>
            <ul>
                <li>one</li>
                <li>two</li>
            </ul>
        </div>
    </body>
</html>
`
	assert.Equal(t, want, got)
}

func TestPrettifyFragment(t *testing.T) {
	got, err := Prettify(`<section><h2>Title</h2><p>text</p></section>`, 2)
	require.NoError(t, err)

	assert.Equal(t, "<section>\n  <h2>Title</h2>\n  <p>text</p>\n</section>\n", got)
}

func TestPrettifyKeepsPreservedContent(t *testing.T) {
	src := "<div><pre>  a\n    b</pre><script>if (a) {\n  b();\n}</script></div>"

	got, err := Prettify(src, 4)
	require.NoError(t, err)

	assert.Contains(t, got, "<pre>  a\n    b</pre>")
	assert.Contains(t, got, "<script>if (a) {\n  b();\n}</script>")
}

func TestPrettifyCollapsesWhitespace(t *testing.T) {
	got, err := Prettify("<div>\n\n   <p>a\n   b</p>\n\n</div>", 4)
	require.NoError(t, err)

	assert.Equal(t, "<div>\n    <p>a b</p>\n</div>\n", got)
}

func TestPrettifyVoidAndEmptyElements(t *testing.T) {
	got, err := Prettify(`<div><img src="a.png"><br><span></span></div><div></div>`, 4)
	require.NoError(t, err)

	assert.Equal(t, "<div><img src=\"a.png\"/><br/><span></span></div>\n<div></div>\n", got)
}

func TestPrettifyKeepsMixedInlineContentTogether(t *testing.T) {
	got, err := Prettify(`<div>foo<span>bar</span> <em>baz</em><p>block</p>tail<a href="/x">link</a></div>`, 4)
	require.NoError(t, err)

	want := "<div>\n    foo<span>bar</span> <em>baz</em>\n    <p>block</p>\n    tail<a href=\"/x\">link</a>\n</div>\n"
	assert.Equal(t, want, got)
}
