//go:build property

package watcher

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// A burst of events flushes as one batch holding each path once, in path
// order, with the last event seen for that path.
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("bursts collapse to one event per path", prop.ForAll(
		func(indexes []int) bool {
			if len(indexes) == 0 {
				return true
			}
			debouncer := newDebouncer(50 * time.Millisecond)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go debouncer.start(ctx)

			last := make(map[string]EventType)
			for i, idx := range indexes {
				path := fmt.Sprintf("file%d.scss", idx)
				typ := EventType(i % 4)
				last[path] = typ
				debouncer.events <- ChangeEvent{Path: path, Type: typ}
			}

			var events []ChangeEvent
			select {
			case events = <-debouncer.output:
			case <-time.After(time.Second):
				return false
			}

			if len(events) != len(last) {
				return false
			}
			if !sort.SliceIsSorted(events, func(i, j int) bool { return events[i].Path < events[j].Path }) {
				return false
			}
			for _, e := range events {
				if last[e.Path] != e.Type {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.IntRange(0, 6)),
	))

	properties.TestingRun(t)
}
