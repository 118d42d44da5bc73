// Package depgraph tracks which files import which, as adjacency lists in
// both directions. Nodes are keyed by file path exactly as submitted to
// the cache; no back-pointers into file state are held here.
package depgraph

import "sort"

// Graph is a collection of nodes and their dependency edges.
type Graph struct {
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
}

// node represents a single vertex. It is un-exported to enforce
// interaction via the public API (using string IDs), not by direct struct
// manipulation.
type node struct {
	id string
	// deps holds the nodes this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the nodes that depend on this node (successors).
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// Add adds a node with the given ID. If a node with the same ID already
// exists, the function does nothing.
func (g *Graph) Add(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// SetDependencies replaces the outgoing dependency edges of id with deps.
// Nodes are created as needed; a self-dependency (a file importing its own
// manifest key) is ignored.
func (g *Graph) SetDependencies(id string, deps []string) {
	g.Add(id)
	n := g.nodes[id]
	for _, old := range n.deps {
		delete(old.dependents, id)
	}
	n.deps = make(map[string]*node)
	for _, depID := range deps {
		if depID == id {
			continue
		}
		g.Add(depID)
		dep := g.nodes[depID]
		n.deps[depID] = dep
		dep.dependents[id] = n
	}
}

// Remove deletes a node and every edge touching it. Dependent nodes keep
// existing; only their edge to the removed node disappears.
func (g *Graph) Remove(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, dep := range n.deps {
		delete(dep.dependents, id)
	}
	for _, dependent := range n.dependents {
		delete(dependent.deps, id)
	}
	delete(g.nodes, id)
}

// Dependencies returns the sorted IDs that id depends on.
func (g *Graph) Dependencies(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.deps)
}

// Dependents returns the sorted IDs that depend on id.
func (g *Graph) Dependents(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.dependents)
}

// TransitiveDependents returns every node reachable by following
// dependent edges from id, sorted, excluding id itself.
func (g *Graph) TransitiveDependents(id string) []string {
	start, ok := g.nodes[id]
	if !ok {
		return nil
	}
	seen := map[string]bool{id: true}
	queue := []*node{start}
	var out []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for depID, dependent := range n.dependents {
			if seen[depID] {
				continue
			}
			seen[depID] = true
			out = append(out, depID)
			queue = append(queue, dependent)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]*node) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
