package inventory

import "strconv"

// DefaultThreshold is the minimum Jaccard overlap used when none is configured.
const DefaultThreshold = 0.8

// Group is a set of tables whose columns overlap a founding table's columns.
type Group struct {
	// Members lists the tables in the order they joined; the founder is first.
	Members []string `json:"similar_tables"`
	// SharedColumns is the founder's column set, which defined the group.
	SharedColumns []string `json:"shared_columns"`
	// Score is the mean overlap of the non-founding members, two decimals.
	Score string `json:"similarity_score"`
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two column sets. Duplicates inside
// either slice are ignored. Two empty sets are identical and score 1.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	union := len(setA)
	shared := 0
	for col := range setB {
		if _, ok := setA[col]; ok {
			shared++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(shared) / float64(union)
}

// candidate is a group under construction.
type candidate struct {
	columns []string
	members []string
	scores  []float64
}

// GroupSimilar clusters tables by column overlap in a single greedy pass.
//
// Tables are visited in the given order. Each joins the first existing group
// (in creation order) whose defining columns overlap its own by at least
// threshold, even when a later group would score higher; otherwise it founds
// a new group. Groups that end with a single member are dropped. Because the
// result depends on visiting order, callers pass the inventory sorted by
// table name.
func GroupSimilar(tables []Table, threshold float64) []Group {
	var candidates []*candidate

	for _, t := range tables {
		var home *candidate
		var score float64
		for _, c := range candidates {
			if s := Jaccard(t.Columns, c.columns); s >= threshold {
				home, score = c, s
				break
			}
		}

		if home == nil {
			candidates = append(candidates, &candidate{
				columns: append([]string(nil), t.Columns...),
				members: []string{t.Name},
			})
			continue
		}
		home.members = append(home.members, t.Name)
		home.scores = append(home.scores, score)
	}

	groups := make([]Group, 0)
	for _, c := range candidates {
		if len(c.members) < 2 {
			continue
		}
		groups = append(groups, Group{
			Members:       c.members,
			SharedColumns: c.columns,
			Score:         formatScore(mean(c.scores)),
		})
	}
	return groups
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

func toSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}
