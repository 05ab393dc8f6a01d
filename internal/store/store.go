// Package store holds the graph store adapter the engine runs against and
// its two implementations: GraphStore over a Cypher driver and MemoryStore
// kept in process. Both pass the storetest contract suite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agenthands/lila/internal/core/model"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the adapter contract. Every write applies fully or not at all,
// and writes to the same persona pair are serialized.
type Store interface {
	FindPersona(ctx context.Context, id string) (*model.Persona, error)
	// FindRelationship matches the pair in either order.
	FindRelationship(ctx context.Context, a, b string) (*model.Relationship, error)
	// ApplyBoundedDelta also returns the metrics it replaced.
	ApplyBoundedDelta(ctx context.Context, a, b string, d model.MetricDelta) (*model.Relationship, model.Metrics, error)
	RecordInteractionEffect(ctx context.Context, a, b string, valence float64, at time.Time) (*model.Relationship, error)

	// ListPersonas orders by name.
	ListPersonas(ctx context.Context) ([]model.Persona, error)
	// ListRelationships orders by strength descending, then by persona ids.
	ListRelationships(ctx context.Context) ([]model.Relationship, error)
	// ListRecentlyActive orders by UpdatedAt descending.
	ListRecentlyActive(ctx context.Context, limit int) ([]model.Relationship, error)

	// EnsureRelationship creates the relationship from seed unless the pair
	// already has one, and reports whether it did. Both personas must exist.
	EnsureRelationship(ctx context.Context, a, b string, seed model.Relationship) (*model.Relationship, bool, error)
	// SavePersona creates or replaces a persona. A name held by another id
	// is ErrConflict.
	SavePersona(ctx context.Context, p model.Persona) error

	// ListGoals returns the goals of one persona, or of all when personaID
	// is empty.
	ListGoals(ctx context.Context, personaID string) ([]model.Goal, error)
	// AdvanceGoals applies every advance or none of them. A persona that
	// does not exist fails the whole batch with ErrNotFound. Goals come back
	// in the order of advs.
	AdvanceGoals(ctx context.Context, advs []model.GoalAdvance) ([]model.Goal, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Clock lets tests pin the timestamps stores write.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
