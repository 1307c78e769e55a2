package stylesheet

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// SourceMap is a version 3 source map.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// ParseSourceMap decodes a JSON source map.
func ParseSourceMap(data []byte) (*SourceMap, error) {
	var m SourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("source map: %w", err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("source map: unsupported version %d", m.Version)
	}
	if m.Names == nil {
		m.Names = []string{}
	}
	return &m, nil
}

// JSON encodes the map.
func (m *SourceMap) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// InlineComment is the sourceMappingURL comment carrying the whole map as a
// base64 data URL.
func (m *SourceMap) InlineComment() (string, error) {
	data, err := m.JSON()
	if err != nil {
		return "", err
	}
	return "/*# sourceMappingURL=data:application/json;charset=utf-8;base64," +
		base64.StdEncoding.EncodeToString(data) + " */", nil
}

// Remap moves the mappings of original (the text the map was generated
// for) onto the lines of printed. Every printed line takes the segments of
// its source line, shifted by the change in indentation.
func (m *SourceMap) Remap(original string, printed Printed) error {
	decoded, err := decodeMappings(m.Mappings)
	if err != nil {
		return err
	}

	origLines := strings.Split(original, "\n")
	outLines := strings.Split(printed.CSS, "\n")

	remapped := make([][]segment, len(printed.Lines))
	for i, src := range printed.Lines {
		if src < 0 || src >= len(decoded) || src >= len(origLines) || i >= len(outLines) {
			continue
		}
		delta := indentOf(outLines[i]) - indentOf(origLines[src])
		for _, seg := range decoded[src] {
			seg.genCol += delta
			if seg.genCol < 0 {
				seg.genCol = 0
			}
			remapped[i] = append(remapped[i], seg)
		}
	}

	m.Mappings = encodeMappings(remapped)
	return nil
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// segment is one decoded mapping with absolute values. fields is 1, 4 or 5.
type segment struct {
	genCol  int
	source  int
	srcLine int
	srcCol  int
	name    int
	fields  int
}

const vlqAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var vlqValues = func() [256]int {
	var t [256]int
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(vlqAlphabet); i++ {
		t[vlqAlphabet[i]] = i
	}
	return t
}()

func decodeMappings(mappings string) ([][]segment, error) {
	var (
		lines                        [][]segment
		source, srcLine, srcCol, nme int
	)

	for _, group := range strings.Split(mappings, ";") {
		var line []segment
		genCol := 0
		for _, raw := range strings.Split(group, ",") {
			if raw == "" {
				continue
			}
			values, err := decodeVLQ(raw)
			if err != nil {
				return nil, err
			}
			if len(values) != 1 && len(values) != 4 && len(values) != 5 {
				return nil, fmt.Errorf("source map: segment %q has %d fields", raw, len(values))
			}

			genCol += values[0]
			seg := segment{genCol: genCol, fields: len(values)}
			if len(values) >= 4 {
				source += values[1]
				srcLine += values[2]
				srcCol += values[3]
				seg.source, seg.srcLine, seg.srcCol = source, srcLine, srcCol
			}
			if len(values) == 5 {
				nme += values[4]
				seg.name = nme
			}
			line = append(line, seg)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func encodeMappings(lines [][]segment) string {
	var (
		sb                           strings.Builder
		source, srcLine, srcCol, nme int
	)

	for i, line := range lines {
		if i > 0 {
			sb.WriteByte(';')
		}
		genCol := 0
		for j, seg := range line {
			if j > 0 {
				sb.WriteByte(',')
			}
			encodeVLQ(&sb, seg.genCol-genCol)
			genCol = seg.genCol
			if seg.fields >= 4 {
				encodeVLQ(&sb, seg.source-source)
				encodeVLQ(&sb, seg.srcLine-srcLine)
				encodeVLQ(&sb, seg.srcCol-srcCol)
				source, srcLine, srcCol = seg.source, seg.srcLine, seg.srcCol
			}
			if seg.fields == 5 {
				encodeVLQ(&sb, seg.name-nme)
				nme = seg.name
			}
		}
	}
	return sb.String()
}

func decodeVLQ(s string) ([]int, error) {
	var (
		out   []int
		value int
		shift uint
	)
	for i := 0; i < len(s); i++ {
		digit := vlqValues[s[i]]
		if digit < 0 {
			return nil, fmt.Errorf("source map: invalid character %q", s[i])
		}
		value += (digit & 31) << shift
		if digit&32 != 0 {
			shift += 5
			continue
		}
		if value&1 == 1 {
			out = append(out, -(value >> 1))
		} else {
			out = append(out, value>>1)
		}
		value, shift = 0, 0
	}
	if shift != 0 {
		return nil, fmt.Errorf("source map: truncated segment %q", s)
	}
	return out, nil
}

func encodeVLQ(sb *strings.Builder, v int) {
	if v < 0 {
		v = (-v << 1) | 1
	} else {
		v <<= 1
	}
	for {
		digit := v & 31
		v >>= 5
		if v > 0 {
			digit |= 32
		}
		sb.WriteByte(vlqAlphabet[digit])
		if v == 0 {
			return
		}
	}
}
