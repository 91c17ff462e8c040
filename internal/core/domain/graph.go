package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrSelfLoop     = errors.New("domain: self-loop edge")
	ErrEdgeNotFound = errors.New("domain: edge not found")
)

// Node is a graph vertex. Name, Artist and Features mirror the catalog entry
// at the time the graph was built or last refreshed.
type Node struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Artist   string        `json:"artist,omitempty"`
	Features AudioFeatures `json:"features"`
}

// NodeFromTrack copies a track's attributes into a node mirror.
func NodeFromTrack(t Track) Node {
	return Node{ID: t.ID, Name: t.Name, Artist: t.Artist, Features: t.Features}
}

// Edge is an undirected pair with U < V. A nil Weight means the weight has not
// been computed yet, which is distinct from a computed weight of 0.
type Edge struct {
	U      string   `json:"u"`
	V      string   `json:"v"`
	Weight *float64 `json:"weight,omitempty"`
}

// Graph is an undirected, simple, weighted similarity graph over track ids.
// It is not safe for concurrent mutation; concurrent readers are fine once
// construction is finished.
type Graph struct {
	Threshold float64

	nodes map[string]Node
	adj   map[string]map[string]*float64
}

// NewGraph returns an empty graph built with the given similarity threshold.
func NewGraph(threshold float64) *Graph {
	return &Graph{
		Threshold: threshold,
		nodes:     make(map[string]Node),
		adj:       make(map[string]map[string]*float64),
	}
}

// AddNode inserts n or replaces the mirror of an existing node. Edges are kept.
func (g *Graph) AddNode(n Node) {
	g.nodes[n.ID] = n
	if _, ok := g.adj[n.ID]; !ok {
		g.adj[n.ID] = make(map[string]*float64)
	}
}

// HasNode reports whether id is a vertex of g.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the mirror stored for id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// RemoveNode deletes id and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	for nb := range g.adj[id] {
		delete(g.adj[nb], id)
	}
	delete(g.adj, id)
	delete(g.nodes, id)
}

// AddEdge connects u and v, creating bare nodes for unknown endpoints.
// A nil weight records the edge with its weight still unknown.
func (g *Graph) AddEdge(u, v string, weight *float64) error {
	if u == v {
		return fmt.Errorf("%w: %s", ErrSelfLoop, u)
	}
	if !g.HasNode(u) {
		g.AddNode(Node{ID: u})
	}
	if !g.HasNode(v) {
		g.AddNode(Node{ID: v})
	}
	w := copyWeight(weight)
	g.adj[u][v] = w
	g.adj[v][u] = w
	return nil
}

// SetWeight fills in the weight of an existing edge.
func (g *Graph) SetWeight(u, v string, weight float64) error {
	if !g.HasEdge(u, v) {
		return fmt.Errorf("%w: %s-%s", ErrEdgeNotFound, u, v)
	}
	w := weight
	g.adj[u][v] = &w
	g.adj[v][u] = &w
	return nil
}

// HasEdge reports whether u and v are adjacent.
func (g *Graph) HasEdge(u, v string) bool {
	_, ok := g.adj[u][v]
	return ok
}

// Weight returns the weight of edge u-v. ok is false when the edge does not
// exist or its weight is unknown.
func (g *Graph) Weight(u, v string) (w float64, ok bool) {
	p, exists := g.adj[u][v]
	if !exists || p == nil {
		return 0, false
	}
	return *p, true
}

// Neighbors returns the vertices adjacent to id in ascending order.
func (g *Graph) Neighbors(id string) []string {
	out := make([]string, 0, len(g.adj[id]))
	for nb := range g.adj[id] {
		out = append(out, nb)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of edges touching id.
func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

// NodeIDs returns every vertex in ascending order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of vertices.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, nbs := range g.adj {
		n += len(nbs)
	}
	return n / 2
}

// Edges returns every edge once, ordered by (U, V). Weights are copies.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.EdgeCount())
	for _, u := range g.NodeIDs() {
		for _, v := range g.Neighbors(u) {
			if u < v {
				edges = append(edges, Edge{U: u, V: v, Weight: copyWeight(g.adj[u][v])})
			}
		}
	}
	return edges
}

// UnweightedEdges returns the edges whose weight has not been computed yet.
func (g *Graph) UnweightedEdges() []Edge {
	var missing []Edge
	for _, e := range g.Edges() {
		if e.Weight == nil {
			missing = append(missing, e)
		}
	}
	return missing
}

// IsolatedCount returns the number of degree-zero vertices.
func (g *Graph) IsolatedCount() int {
	n := 0
	for id := range g.nodes {
		if len(g.adj[id]) == 0 {
			n++
		}
	}
	return n
}

// Weighted returns a pointer to a copy of w, for building edges.
func Weighted(w float64) *float64 {
	return &w
}

func copyWeight(p *float64) *float64 {
	if p == nil {
		return nil
	}
	w := *p
	return &w
}
