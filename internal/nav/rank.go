package nav

import "sort"

type RankedObject struct {
	ObjectRecord
	Rank float64 `json:"rank"`
}

// Rank computes an importance score for every object from the reference
// graph. Objects referenced by many well-referenced objects score highest.
func Rank(g Graph, iterations int, dampingFactor float64) map[string]float64 {
	ids := g.Objects()
	n := float64(len(ids))
	ranks := make(map[string]float64, len(ids))
	if n == 0 {
		return ranks
	}

	for _, id := range ids {
		ranks[id] = 1.0 / n
	}

	for i := 0; i < iterations; i++ {
		next := make(map[string]float64, len(ids))
		for _, id := range ids {
			rank := (1 - dampingFactor) / n
			for _, inID := range g.ReferencedBy(id) {
				outDegree := float64(len(g.References(inID)))
				if outDegree > 0 {
					rank += dampingFactor * (ranks[inID] / outDegree)
				}
			}
			next[id] = rank
		}
		ranks = next
	}
	return ranks
}

// TopObjects returns the n highest ranked objects.
func TopObjects(g Graph, n int) []RankedObject {
	ranks := Rank(g, 20, 0.85)
	out := make([]RankedObject, 0, len(ranks))
	for id, rank := range ranks {
		out = append(out, RankedObject{ObjectRecord: Record(g, id), Rank: rank})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank == out[j].Rank {
			return out[i].ID < out[j].ID
		}
		return out[i].Rank > out[j].Rank
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}
