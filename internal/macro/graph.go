package macro

import (
	"slices"
	"sort"
)

// Graph is the reference graph of a macro set: an edge runs from a macro to
// every macro it includes through macro or ifmacro. References to unknown
// macros are not edges; Registry.Unresolved reports those.
type Graph struct {
	nodes map[string]bool
	uses  map[string][]string // macro -> macros it includes
	users map[string][]string // macro -> macros including it
}

// NewGraph builds the reference graph from inspected macros.
func NewGraph(infos []*Info) *Graph {
	g := &Graph{
		nodes: make(map[string]bool, len(infos)),
		uses:  make(map[string][]string),
		users: make(map[string][]string),
	}
	for _, info := range infos {
		g.nodes[info.Name] = true
	}
	for _, info := range infos {
		for _, ref := range info.Macros {
			if g.nodes[ref] {
				g.addEdge(info.Name, ref)
			}
		}
	}
	return g
}

func (g *Graph) addEdge(from, to string) {
	if !slices.Contains(g.uses[from], to) {
		g.uses[from] = append(g.uses[from], to)
	}
	if !slices.Contains(g.users[to], from) {
		g.users[to] = append(g.users[to], from)
	}
}

// Len returns the number of macros in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Uses returns the macros name includes directly, sorted.
func (g *Graph) Uses(name string) []string {
	return sortedCopy(g.uses[name])
}

// UsedBy returns the macros that include name directly, sorted.
func (g *Graph) UsedBy(name string) []string {
	return sortedCopy(g.users[name])
}

// Cycle returns a reference cycle as a path that starts and ends with the
// same macro, or nil. A macro including itself is a cycle of one.
// Macros are visited in name order so the result is deterministic.
func (g *Graph) Cycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	parent := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, next := range g.Uses(id) {
			if !visited[next] {
				parent[next] = id
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cycle = []string{next}
				for cur := id; cur != next; cur = parent[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{next}, cycle...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.names() {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// Dependencies returns every macro name transitively includes, sorted.
func (g *Graph) Dependencies(name string) []string {
	return g.reach(name, g.uses)
}

// Affected returns the changed macros that exist in the graph plus every
// macro that transitively includes one of them, sorted. It answers which
// rendered statements can differ after the given macros change.
func (g *Graph) Affected(changed []string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, user := range g.users[id] {
			mark(user)
		}
	}
	for _, id := range changed {
		if g.nodes[id] {
			mark(id)
		}
	}
	return sortedKeys(seen)
}

func (g *Graph) reach(name string, edges map[string][]string) []string {
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, next := range edges[id] {
			if !seen[next] {
				seen[next] = true
				walk(next)
			}
		}
	}
	walk(name)
	delete(seen, name)
	return sortedKeys(seen)
}

func (g *Graph) names() []string {
	return sortedKeys(g.nodes)
}

func sortedCopy(s []string) []string {
	out := slices.Clone(s)
	sort.Strings(out)
	return out
}
