//go:build property
// +build property

package sprite

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Every fragment uses the same ids; after merging each id must still be
// unique and carry its own file's prefix.
func TestMergeNamespaceProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	fragment := `<svg xmlns="http://www.w3.org/2000/svg"><defs><path id="p"/></defs><g id="g"><use href="#p"/></g></svg>`

	for _, minifyIDs := range []bool{false, true} {
		minifyIDs := minifyIDs
		properties.Property(fmt.Sprintf("N fragments give N id namespaces (minify=%v)", minifyIDs), prop.ForAll(
			func(n int) bool {
				fragments := make([]Fragment, n)
				for i := range fragments {
					fragments[i] = Fragment{Name: fmt.Sprintf("icon%d", i), Data: []byte(fragment)}
				}

				doc, err := Merge(fragments, minifyIDs)
				if err != nil {
					return false
				}

				ids := make(map[string]bool)
				prefixes := make(map[string]bool)
				for _, el := range doc.Root().FindElements(".//*[@id]") {
					id := el.SelectAttrValue("id", "")
					if ids[id] {
						return false
					}
					ids[id] = true
					if el.Tag != "symbol" {
						prefix, _, ok := strings.Cut(id, "-")
						if !ok {
							return false
						}
						prefixes[prefix] = true
					}
				}
				for _, use := range doc.Root().FindElements(".//use") {
					if !ids[strings.TrimPrefix(use.SelectAttrValue("href", ""), "#")] {
						return false
					}
				}

				return len(doc.Root().SelectElements("symbol")) == n && len(prefixes) == n && len(ids) == 3*n
			},
			gen.IntRange(1, 40),
		))
	}

	properties.TestingRun(t)
}
