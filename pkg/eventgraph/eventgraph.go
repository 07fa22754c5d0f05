// Package eventgraph holds the directed causality graph the validators walk:
// nodes are narrative event ids, edges point from cause to effect. Ids are
// interned to small integers so traversal stays allocation-light even on
// dense graphs.
package eventgraph

import "sort"

// Graph is a directed graph over interned event ids. The zero value is not
// usable; call New.
type Graph struct {
	ids   map[string]int
	names []string

	out [][]int
	in  [][]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{ids: make(map[string]int)}
}

// intern maps an id to its dense integer handle, growing the adjacency
// lists on first sight.
func (g *Graph) intern(id string) int {
	if n, ok := g.ids[id]; ok {
		return n
	}

	n := len(g.names)
	g.ids[id] = n
	g.names = append(g.names, id)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)

	return n
}

// Add ensures the event id exists as a node. Returns false when it was
// already present.
func (g *Graph) Add(id string) bool {
	if _, ok := g.ids[id]; ok {
		return false
	}

	g.intern(id)

	return true
}

// Link adds a cause → effect edge, creating missing nodes. Duplicate edges
// are ignored.
func (g *Graph) Link(cause, effect string) bool {
	u := g.intern(cause)
	v := g.intern(effect)

	for _, w := range g.out[u] {
		if w == v {
			return false
		}
	}

	g.out[u] = append(g.out[u], v)
	g.in[v] = append(g.in[v], u)

	return true
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.names)
}

// Nodes returns every event id in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.names...)
}

// Has reports whether the event id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.ids[id]

	return ok
}

// Effects returns the ids this event causes, in edge-insertion order.
func (g *Graph) Effects(id string) []string {
	u, ok := g.ids[id]
	if !ok {
		return nil
	}

	return g.resolve(g.out[u])
}

// Causes returns the ids that cause this event, in edge-insertion order.
func (g *Graph) Causes(id string) []string {
	u, ok := g.ids[id]
	if !ok {
		return nil
	}

	return g.resolve(g.in[u])
}

// Degree returns the total edge count touching the event.
func (g *Graph) Degree(id string) int {
	u, ok := g.ids[id]
	if !ok {
		return 0
	}

	return len(g.out[u]) + len(g.in[u])
}

// Roots returns events with no causes, in insertion order.
func (g *Graph) Roots() []string {
	var roots []string

	for u, parents := range g.in {
		if len(parents) == 0 {
			roots = append(roots, g.names[u])
		}
	}

	return roots
}

// Reaches reports whether a directed path leads from the first event to the
// second.
func (g *Graph) Reaches(from, to string) bool {
	u, ok := g.ids[from]
	if !ok {
		return false
	}

	v, ok := g.ids[to]
	if !ok {
		return false
	}

	if u == v {
		return true
	}

	seen := make([]bool, len(g.names))
	seen[u] = true
	queue := []int{u}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.out[cur] {
			if next == v {
				return true
			}

			if !seen[next] {
				seen[next] = true

				queue = append(queue, next)
			}
		}
	}

	return false
}

// TopoSort returns the event ids in causal order via Kahn's algorithm. The
// second result is false when a cycle prevents a full ordering; the partial
// prefix is still returned. Ready nodes drain in interned (insertion) order
// so results are deterministic.
func (g *Graph) TopoSort() ([]string, bool) {
	n := len(g.names)
	indeg := make([]int, n)

	for u := range g.in {
		indeg[u] = len(g.in[u])
	}

	var queue []int

	for u := 0; u < n; u++ {
		if indeg[u] == 0 {
			queue = append(queue, u)
		}
	}

	order := make([]int, 0, n)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)

		for _, v := range g.out[u] {
			indeg[v]--

			if indeg[v] == 0 {
				insertSorted(&queue, v)
			}
		}
	}

	return g.resolve(order), len(order) == n
}

// FindCycle returns a cycle through the seed event, or nil. The returned
// path lists each member once, starting at the seed.
func (g *Graph) FindCycle(seed string) []string {
	start, ok := g.ids[seed]
	if !ok {
		return nil
	}

	parent := make(map[int]int)
	parent[start] = -1
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range g.out[u] {
			if v == start {
				cycle := []int{u}
				for cur := parent[u]; cur != -1; cur = parent[cur] {
					cycle = append(cycle, cur)
				}

				// Walked back to front; reverse into seed-first order.
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}

				return g.resolve(cycle)
			}

			if _, visited := parent[v]; !visited {
				parent[v] = u

				queue = append(queue, v)
			}
		}
	}

	return nil
}

func (g *Graph) resolve(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.names[id]
	}

	return out
}

func insertSorted(queue *[]int, v int) {
	i := sort.SearchInts(*queue, v)
	*queue = append(*queue, 0)
	copy((*queue)[i+1:], (*queue)[i:])
	(*queue)[i] = v
}
