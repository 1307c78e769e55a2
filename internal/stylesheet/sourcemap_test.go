package stylesheet

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQ(t *testing.T) {
	tests := []struct {
		value int
		text  string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{1000, "w+B"},
	}

	for _, tt := range tests {
		var sb strings.Builder
		encodeVLQ(&sb, tt.value)
		assert.Equal(t, tt.text, sb.String(), tt.value)

		decoded, err := decodeVLQ(tt.text)
		require.NoError(t, err)
		assert.Equal(t, []int{tt.value}, decoded)
	}
}

func TestMappingsRoundTrip(t *testing.T) {
	for _, mappings := range []string{
		"AAAA;AACE,SAAS;;AAEhB",
		"AAAA,CAAC,EAAE;A;;;AAAA",
		"",
	} {
		decoded, err := decodeMappings(mappings)
		require.NoError(t, err)
		assert.Equal(t, mappings, encodeMappings(decoded))
	}
}

func TestDecodeMappingsErrors(t *testing.T) {
	for _, bad := range []string{"AA", "AAAA,!", "g"} {
		_, err := decodeMappings(bad)
		assert.Error(t, err, bad)
	}
}

func TestRemap(t *testing.T) {
	m := &SourceMap{Version: 3, Sources: []string{"a.scss"}, Names: []string{}, Mappings: "AAAA;EACE"}
	original := "a {\n  color: red;\n}\n"
	printed := Printed{
		CSS:   "a {\n    -webkit-x: red;\n  color: red;\n}\n",
		Lines: []int{0, 1, 1, -1},
	}

	require.NoError(t, m.Remap(original, printed))
	assert.Equal(t, "AAAA;IACE;EAAA;", m.Mappings)
}

func TestInlineComment(t *testing.T) {
	m := &SourceMap{Version: 3, Sources: []string{"a.scss"}, Names: []string{}, Mappings: "AAAA"}

	comment, err := m.InlineComment()
	require.NoError(t, err)

	prefix := "/*# sourceMappingURL=data:application/json;charset=utf-8;base64,"
	require.True(t, strings.HasPrefix(comment, prefix))
	require.True(t, strings.HasSuffix(comment, " */"))

	data, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(strings.TrimPrefix(comment, prefix), " */"))
	require.NoError(t, err)
	parsed, err := ParseSourceMap(data)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestParseSourceMapRejectsOtherVersions(t *testing.T) {
	_, err := ParseSourceMap([]byte(`{"version":2,"sources":[],"mappings":""}`))
	assert.Error(t, err)

	_, err = ParseSourceMap([]byte(`not json`))
	assert.Error(t, err)
}
