package community

import (
	"sort"

	"github.com/agenthands/lila/internal/core/model"
)

// LabelPropagationDetector clusters personas with the Label Propagation
// Algorithm. Edge weight is relationship strength, so strong ties pull
// personas into the same community more than weak ones.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(personas []model.Persona, rels []model.Relationship) ([]Community, error) {
	if len(personas) == 0 {
		return nil, nil
	}

	g := buildGraph(personas, rels)

	// Each persona starts in its own community.
	labels := make(map[string]string, len(g.ids))
	for _, id := range g.ids {
		labels[id] = id
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0

		for _, u := range g.ids {
			neighbors := g.adj[u]
			if len(neighbors) == 0 {
				continue
			}

			weights := make(map[string]float64)
			best := 0.0
			for _, n := range neighbors {
				label := labels[n.id]
				weights[label] += n.weight
				if weights[label] > best {
					best = weights[label]
				}
			}

			var candidates []string
			for label, w := range weights {
				if w == best {
					candidates = append(candidates, label)
				}
			}
			// Lexicographically largest label breaks ties deterministically.
			sort.Strings(candidates)
			next := candidates[len(candidates)-1]

			if labels[u] != next {
				labels[u] = next
				changed++
			}
		}

		if changed == 0 {
			break
		}
	}

	clusters := make(map[string][]string)
	for _, id := range g.ids {
		clusters[labels[id]] = append(clusters[labels[id]], id)
	}

	var groups [][]string
	for _, members := range clusters {
		groups = append(groups, members)
	}
	return g.communities(groups), nil
}
