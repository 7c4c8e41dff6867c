// Package topology models the discovered device graph and the
// propagation of site assignments along it.
package topology

import (
	"github.com/netfusion/netfusion/pkg/store"
)

// Graph is an undirected adjacency view over device links.
type Graph struct {
	adjacency map[int64][]int64
}

// NewGraph builds a graph from link records. Self-links are dropped;
// duplicate edges collapse into one neighbor entry per direction.
func NewGraph(links []*store.DeviceLink) *Graph {
	g := &Graph{adjacency: make(map[int64][]int64)}
	seen := make(map[[2]int64]bool)
	for _, l := range links {
		a, b := l.AID, l.BID
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		key := [2]int64{a, b}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.adjacency[a] = append(g.adjacency[a], b)
		g.adjacency[b] = append(g.adjacency[b], a)
	}
	return g
}

// Neighbors returns the devices directly linked to id.
func (g *Graph) Neighbors(id int64) []int64 {
	return g.adjacency[id]
}

// Propagate computes which unassigned devices should join siteID: a
// breadth-first expansion from the seed set that traverses unassigned
// devices and devices already in siteID, and stops at any device assigned
// to a different site. Returns the ids of unassigned devices reached, in
// discovery order. An empty seed set propagates nothing.
func (g *Graph) Propagate(siteID int64, seeds []int64, assignments map[int64]*int64) []int64 {
	if len(seeds) == 0 {
		return nil
	}

	visited := make(map[int64]bool, len(seeds))
	queue := make([]int64, 0, len(seeds))
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	var reached []int64
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.adjacency[current] {
			if visited[next] {
				continue
			}
			visited[next] = true

			assigned, known := assignments[next]
			if !known {
				// A link endpoint with no device row; nothing to assign.
				continue
			}
			if assigned != nil {
				// Devices in foreign sites are barriers: not assigned,
				// not traversed. Devices already in the target site are
				// traversed but need no update.
				if *assigned == siteID {
					queue = append(queue, next)
				}
				continue
			}

			reached = append(reached, next)
			queue = append(queue, next)
		}
	}
	return reached
}
