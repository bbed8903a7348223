package campaign

import (
	"sort"
	"strings"

	"github.com/sells-group/leadflow/internal/model"
)

// TopPainPoints returns the n most frequent pain points across leads. Ties
// keep the order in which the pain points first appear.
func TopPainPoints(leads []model.EnrichedLead, n int) []string {
	type tally struct {
		text  string
		count int
		first int
	}
	seen := map[string]*tally{}
	var order []*tally

	for _, l := range leads {
		for _, p := range l.Research.PainPoints {
			key := strings.ToLower(strings.TrimSpace(p))
			if key == "" {
				continue
			}
			if t, ok := seen[key]; ok {
				t.count++
				continue
			}
			t := &tally{text: strings.TrimSpace(p), count: 1, first: len(order)}
			seen[key] = t
			order = append(order, t)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})

	out := make([]string, 0, n)
	for _, t := range order {
		if len(out) == n {
			break
		}
		out = append(out, t.text)
	}
	return out
}
