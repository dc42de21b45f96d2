// Package nav answers navigation queries over the object reference graph.
package nav

import "sort"

// Graph is the read side of an object graph. *hkx.File satisfies it.
type Graph interface {
	Objects() []string
	Class(id string) string
	References(id string) []string
	ReferencedBy(id string) []string
}

type ObjectRecord struct {
	ID    string `json:"id"`
	Class string `json:"class"`
}

type TraceHop struct {
	Depth int          `json:"depth"`
	From  ObjectRecord `json:"from"`
	To    ObjectRecord `json:"to"`
}

func Record(g Graph, id string) ObjectRecord {
	return ObjectRecord{ID: id, Class: g.Class(id)}
}

func records(g Graph, ids []string) []ObjectRecord {
	out := make([]ObjectRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, Record(g, id))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// References lists the objects id points at.
func References(g Graph, id string) []ObjectRecord {
	return records(g, g.References(id))
}

// Referrers lists the objects that point at id.
func Referrers(g Graph, id string) []ObjectRecord {
	return records(g, g.ReferencedBy(id))
}

// ShortestPath returns the shortest chain of forward references from fromID
// to toID, both ends included, or nil when toID is unreachable.
func ShortestPath(g Graph, fromID, toID string) []string {
	if fromID == toID {
		return []string{fromID}
	}

	queue := []string{fromID}
	visited := map[string]bool{fromID: true}
	parent := map[string]string{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, nextID := range g.References(current) {
			if visited[nextID] {
				continue
			}
			visited[nextID] = true
			parent[nextID] = current
			if nextID == toID {
				return ReconstructPath(parent, fromID, toID)
			}
			queue = append(queue, nextID)
		}
	}

	return nil
}

func ReconstructPath(parent map[string]string, fromID, toID string) []string {
	out := []string{toID}
	for current := toID; current != fromID; {
		prev, ok := parent[current]
		if !ok {
			return nil
		}
		out = append(out, prev)
		current = prev
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Trace walks forward references breadth first from id and returns every
// edge seen within depth hops, ordered by depth then endpoints.
func Trace(g Graph, id string, depth int) []TraceHop {
	type queueItem struct {
		id    string
		depth int
	}
	queue := []queueItem{{id: id, depth: 0}}
	seenDepth := map[string]int{id: 0}
	hops := make([]TraceHop, 0)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= depth {
			continue
		}
		for _, nextID := range g.References(current.id) {
			nextDepth := current.depth + 1
			hops = append(hops, TraceHop{
				Depth: nextDepth,
				From:  Record(g, current.id),
				To:    Record(g, nextID),
			})
			if previousDepth, exists := seenDepth[nextID]; !exists || nextDepth < previousDepth {
				seenDepth[nextID] = nextDepth
				queue = append(queue, queueItem{id: nextID, depth: nextDepth})
			}
		}
	}

	sort.Slice(hops, func(i, j int) bool {
		if hops[i].Depth != hops[j].Depth {
			return hops[i].Depth < hops[j].Depth
		}
		if hops[i].From.ID != hops[j].From.ID {
			return hops[i].From.ID < hops[j].From.ID
		}
		return hops[i].To.ID < hops[j].To.ID
	})
	return hops
}

// Orphans lists objects nothing references, excluding the given roots.
func Orphans(g Graph, roots ...string) []string {
	skip := make(map[string]bool, len(roots))
	for _, root := range roots {
		skip[root] = true
	}
	var out []string
	for _, id := range g.Objects() {
		if !skip[id] && len(g.ReferencedBy(id)) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
