/*
Package graph holds the heterogeneous evidence graph built from sessions.

Nodes are sessions, domains and queries. Edges are undirected and weighted;
their kind follows from the kinds of the two endpoints. Weights accumulate
additively and a non-positive contribution is never recorded, so every edge
present in the graph has a strictly positive weight.
*/
package graph

import (
	"fmt"
	"sort"
)

// Kind is the type of a graph node.
type Kind string

const (
	KindSession Kind = "session"
	KindDomain  Kind = "domain"
	KindQuery   Kind = "query"
)

func (k Kind) tag() string {
	switch k {
	case KindSession:
		return "s:"
	case KindDomain:
		return "d:"
	case KindQuery:
		return "q:"
	}
	return "?:"
}

// NodeID identifies a node as kind tag plus key, e.g. "q:kitchen island".
type NodeID string

// ID builds the node id for a kind and key.
func ID(kind Kind, key string) NodeID {
	return NodeID(kind.tag() + key)
}

// SessionID, DomainID and QueryID are shorthands for ID.
func SessionID(key string) NodeID { return ID(KindSession, key) }
func DomainID(key string) NodeID  { return ID(KindDomain, key) }
func QueryID(key string) NodeID   { return ID(KindQuery, key) }

// Kind returns the kind encoded in the id.
func (id NodeID) Kind() Kind {
	if len(id) < 2 {
		return ""
	}
	switch id[:2] {
	case "s:":
		return KindSession
	case "d:":
		return KindDomain
	case "q:":
		return KindQuery
	}
	return ""
}

// Key returns the id without its kind tag.
func (id NodeID) Key() string {
	if len(id) < 2 {
		return string(id)
	}
	return string(id[2:])
}

// EdgeKind names the layer an edge belongs to.
type EdgeKind string

const (
	EdgeSessionDomain EdgeKind = "session-domain"
	EdgeSessionQuery  EdgeKind = "session-query"
	EdgeDomainQuery   EdgeKind = "domain-query"
)

// EdgeKindOf returns the edge kind between two node kinds, or "" if the pair
// is not a valid layer.
func EdgeKindOf(a, b Kind) EdgeKind {
	if a > b {
		a, b = b, a
	}
	switch {
	case a == KindDomain && b == KindSession:
		return EdgeSessionDomain
	case a == KindQuery && b == KindSession:
		return EdgeSessionQuery
	case a == KindDomain && b == KindQuery:
		return EdgeDomainQuery
	}
	return ""
}

// Node is a graph vertex.
type Node struct {
	ID   NodeID `json:"id"`
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
}

// Edge is one side of an adjacency entry.
type Edge struct {
	To     NodeID
	Weight float64
}

// Graph is a weighted undirected multi-layer graph. It is not safe for
// concurrent mutation; reads after construction are safe.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
	adj   map[NodeID]map[NodeID]float64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		adj:   make(map[NodeID]map[NodeID]float64),
	}
}

// AddNode inserts a node, merging with an existing node of the same id.
func (g *Graph) AddNode(kind Kind, key string) NodeID {
	id := ID(kind, key)
	if _, ok := g.nodes[id]; ok {
		return id
	}
	g.nodes[id] = &Node{ID: id, Kind: kind, Key: key}
	g.order = append(g.order, id)
	return id
}

// AddWeight adds w to the edge between a and b. Both nodes must exist and
// form a valid layer; non-positive contributions are ignored.
func (g *Graph) AddWeight(a, b NodeID, w float64) error {
	if w <= 0 {
		return nil
	}
	if a == b {
		return fmt.Errorf("self edge on %s", a)
	}
	if _, ok := g.nodes[a]; !ok {
		return fmt.Errorf("unknown node %s", a)
	}
	if _, ok := g.nodes[b]; !ok {
		return fmt.Errorf("unknown node %s", b)
	}
	if EdgeKindOf(a.Kind(), b.Kind()) == "" {
		return fmt.Errorf("invalid edge %s - %s", a, b)
	}
	g.link(a, b, w)
	g.link(b, a, w)
	return nil
}

func (g *Graph) link(a, b NodeID, w float64) {
	m, ok := g.adj[a]
	if !ok {
		m = make(map[NodeID]float64)
		g.adj[a] = m
	}
	m[b] += w
}

// Node returns the node for id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Has reports whether the node exists.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Weight returns the edge weight between a and b, 0 if absent.
func (g *Graph) Weight(a, b NodeID) float64 {
	return g.adj[a][b]
}

// Neighbors returns the edges of id sorted by neighbor id.
func (g *Graph) Neighbors(id NodeID) []Edge {
	m := g.adj[id]
	out := make([]Edge, 0, len(m))
	for to, w := range m {
		out = append(out, Edge{To: to, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// NeighborsOfKind returns neighbors of the given kind sorted by id.
func (g *Graph) NeighborsOfKind(id NodeID, kind Kind) []Edge {
	all := g.Neighbors(id)
	out := all[:0]
	for _, e := range all {
		if e.To.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// Degree returns the weighted degree of id restricted to neighbors of kind.
// An empty kind counts every neighbor.
func (g *Graph) Degree(id NodeID, kind Kind) float64 {
	total := 0.0
	for _, e := range g.Neighbors(id) {
		if kind == "" || e.To.Kind() == kind {
			total += e.Weight
		}
	}
	return total
}

// Nodes returns node ids of kind in insertion order. An empty kind returns
// every node.
func (g *Graph) Nodes(kind Kind) []NodeID {
	out := make([]NodeID, 0, len(g.order))
	for _, id := range g.order {
		if kind == "" || id.Kind() == kind {
			out = append(out, id)
		}
	}
	return out
}

// Stats summarizes the graph.
type Stats struct {
	Sessions           int `json:"sessions"`
	Domains            int `json:"domains"`
	Queries            int `json:"queries"`
	SessionDomainEdges int `json:"session_domain_edges"`
	SessionQueryEdges  int `json:"session_query_edges"`
	DomainQueryEdges   int `json:"domain_query_edges"`
}

// Stats counts nodes and edges per layer.
func (g *Graph) Stats() Stats {
	var st Stats
	for _, id := range g.order {
		switch id.Kind() {
		case KindSession:
			st.Sessions++
		case KindDomain:
			st.Domains++
		case KindQuery:
			st.Queries++
		}
		for to := range g.adj[id] {
			if id >= to {
				continue
			}
			switch EdgeKindOf(id.Kind(), to.Kind()) {
			case EdgeSessionDomain:
				st.SessionDomainEdges++
			case EdgeSessionQuery:
				st.SessionQueryEdges++
			case EdgeDomainQuery:
				st.DomainQueryEdges++
			}
		}
	}
	return st
}
