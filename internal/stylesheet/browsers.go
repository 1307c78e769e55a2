package stylesheet

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// releases lists the versions of each browser a query can select. Only the
// ranges the prefix tables care about need to be accurate.
var releases = map[string][]float64{
	"ie":      {5.5, 6, 7, 8, 9, 10, 11},
	"edge":    series(12, 130),
	"safari":  append([]float64{3.1, 3.2, 4, 5, 5.1, 6, 6.1, 7, 7.1, 8, 9, 9.1, 10, 10.1, 11, 11.1, 12, 12.1, 13, 13.1, 14, 14.1, 15, 15.1, 15.2, 15.4, 15.5, 15.6, 16, 16.1, 16.2, 16.3, 16.4, 16.5, 16.6}, series(17, 18)...),
	"ios_saf": append([]float64{3.2, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 15.4, 16}, series(17, 18)...),
	"chrome":  series(4, 130),
	"firefox": series(2, 130),
	"opera":   series(10, 115),
	"android": append([]float64{2.1, 2.2, 2.3, 3, 4, 4.1, 4.2, 4.4}, series(5, 130)...),
}

var browserAliases = map[string]string{
	"explorer": "ie",
	"ios":      "ios_saf",
	"ff":       "firefox",
}

func series(from, to int) []float64 {
	out := make([]float64, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, float64(v))
	}
	return out
}

var queryPattern = regexp.MustCompile(`^\s*([A-Za-z_]+)\s*(>=|<=|>|<|=)?\s*([0-9]+(?:\.[0-9]+)?)\s*$`)

// Targets holds, per browser, the oldest version the stylesheet must support.
type Targets map[string]float64

// ParseBrowsers reads queries of the form "<browser> <op> <version>", e.g.
// "ie > 9" or "safari >= 7". A bare "<browser> <version>" selects that
// version and newer ones.
func ParseBrowsers(queries []string) (Targets, error) {
	targets := make(Targets)
	for _, q := range queries {
		m := queryPattern.FindStringSubmatch(q)
		if m == nil {
			return nil, fmt.Errorf("unsupported browser query %q", q)
		}

		name := strings.ToLower(m[1])
		if alias, ok := browserAliases[name]; ok {
			name = alias
		}
		versions, ok := releases[name]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q in query %q", m[1], q)
		}

		v, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, fmt.Errorf("bad version in query %q: %w", q, err)
		}

		oldest, ok := oldestMatching(versions, m[2], v)
		if !ok {
			return nil, fmt.Errorf("query %q selects no %s release", q, name)
		}
		if current, seen := targets[name]; !seen || oldest < current {
			targets[name] = oldest
		}
	}
	return targets, nil
}

func oldestMatching(versions []float64, op string, v float64) (float64, bool) {
	for _, r := range versions {
		var match bool
		switch op {
		case ">":
			match = r > v
		case ">=", "":
			match = r >= v
		case "<", "<=":
			return versions[0], versions[0] < v || (op == "<=" && versions[0] == v)
		case "=":
			match = r == v
		}
		if match {
			return r, true
		}
	}
	return 0, false
}

// String lists the targets in a stable order, e.g. "ie 10, safari 6.1".
func (t Targets) String() string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+strconv.FormatFloat(t[name], 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

// needs reports whether a feature that lost its prefix in the given browser
// versions still needs it for these targets. A zero version means the
// browser never shipped the feature unprefixed.
func (t Targets) needs(unprefixedSince map[string]float64) bool {
	for browser, since := range unprefixedSince {
		oldest, ok := t[browser]
		if !ok {
			continue
		}
		if since == 0 || oldest < since {
			return true
		}
	}
	return false
}
