// Package community groups personas into clusters of related people using
// the relationship graph.
package community

import (
	"sort"

	"github.com/agenthands/lila/internal/core/model"
)

type CommunityDetector interface {
	Detect(personas []model.Persona, rels []model.Relationship) ([]Community, error)
}

type Community struct {
	Members []model.PersonaSummary `json:"members"`
	// Cohesion is the mean relationship strength of edges inside the community.
	Cohesion float64 `json:"cohesion"`
	Edges    int     `json:"edges"`
}

// New returns the detector registered under name; unknown names get label
// propagation.
func New(name string) CommunityDetector {
	if name == "components" {
		return NewSimpleDetector()
	}
	return NewLabelPropagationDetector()
}

// SimpleDetector reports connected components of the relationship graph,
// ignoring edge strength.
type SimpleDetector struct{}

func NewSimpleDetector() *SimpleDetector {
	return &SimpleDetector{}
}

func (d *SimpleDetector) Detect(personas []model.Persona, rels []model.Relationship) ([]Community, error) {
	g := buildGraph(personas, rels)

	visited := make(map[string]bool)
	var groups [][]string
	for _, id := range g.ids {
		if visited[id] {
			continue
		}
		var component []string
		d.dfs(id, g, visited, &component)
		groups = append(groups, component)
	}

	return g.communities(groups), nil
}

func (d *SimpleDetector) dfs(u string, g *graph, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, n := range g.adj[u] {
		if !visited[n.id] {
			d.dfs(n.id, g, visited, component)
		}
	}
}

type neighbor struct {
	id     string
	weight float64
}

type graph struct {
	ids      []string
	personas map[string]model.Persona
	adj      map[string][]neighbor
	rels     []model.Relationship
}

// buildGraph indexes personas and keeps only relationships whose endpoints
// are both known and whose strength is positive. Neighbor lists are sorted
// so weight sums are computed in a stable order.
func buildGraph(personas []model.Persona, rels []model.Relationship) *graph {
	g := &graph{
		personas: make(map[string]model.Persona, len(personas)),
		adj:      make(map[string][]neighbor),
	}
	for _, p := range personas {
		if _, dup := g.personas[p.PersonaID]; dup {
			continue
		}
		g.personas[p.PersonaID] = p
		g.ids = append(g.ids, p.PersonaID)
	}
	sort.Strings(g.ids)

	for _, r := range rels {
		_, ok1 := g.personas[r.Persona1ID]
		_, ok2 := g.personas[r.Persona2ID]
		if !ok1 || !ok2 || r.Persona1ID == r.Persona2ID || r.RelationshipStrength <= 0 {
			continue
		}
		g.adj[r.Persona1ID] = append(g.adj[r.Persona1ID], neighbor{r.Persona2ID, r.RelationshipStrength})
		g.adj[r.Persona2ID] = append(g.adj[r.Persona2ID], neighbor{r.Persona1ID, r.RelationshipStrength})
		g.rels = append(g.rels, r)
	}
	for id := range g.adj {
		ns := g.adj[id]
		sort.Slice(ns, func(i, j int) bool { return ns[i].id < ns[j].id })
	}
	return g
}

// communities turns id groups into Community values, dropping singletons.
// Output is ordered by size, then by first member id.
func (g *graph) communities(groups [][]string) []Community {
	var out []Community
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)

		in := make(map[string]bool, len(ids))
		c := Community{}
		for _, id := range ids {
			in[id] = true
			c.Members = append(c.Members, g.personas[id].Summary())
		}

		var total float64
		for _, r := range g.rels {
			if in[r.Persona1ID] && in[r.Persona2ID] {
				total += r.RelationshipStrength
				c.Edges++
			}
		}
		if c.Edges > 0 {
			c.Cohesion = total / float64(c.Edges)
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].Members[0].ID < out[j].Members[0].ID
	})
	return out
}
