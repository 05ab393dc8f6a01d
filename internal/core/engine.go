// Package core is the relationship graph engine. It owns every query and
// action the dispatcher exposes and converts adapter failures into apperror
// kinds at its boundary.
package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core/apperror"
	"github.com/agenthands/lila/internal/core/community"
	"github.com/agenthands/lila/internal/core/metrics"
	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/store"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 50
)

type Options struct {
	// CreateMissingRelationships makes UpdateRelationshipMetrics create the
	// pair at DefaultRelationship instead of failing with NotFound.
	CreateMissingRelationships bool
	DefaultRelationship        model.Relationship
	// CommunityAlgorithm is "lpa" (default) or "components".
	CommunityAlgorithm string
}

func DefaultOptions() Options {
	return Options{
		DefaultRelationship: model.Relationship{
			TrustLevel:           model.DefaultMetric,
			IntimacyLevel:        model.DefaultMetric,
			RelationshipStrength: model.DefaultMetric,
			RelationshipType:     model.DefaultRelationshipType,
		},
		CommunityAlgorithm: "lpa",
	}
}

type Engine struct {
	Store    store.Store
	Detector community.CommunityDetector
	Log      *zap.Logger
	Options  Options

	// Now and GoalIDGenerator are replaceable for tests.
	Now             func() time.Time
	GoalIDGenerator func() string

	ids *metrics.IDSource
}

func NewEngine(s store.Store, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		Store:           s,
		Detector:        community.New(opts.CommunityAlgorithm),
		Log:             log,
		Options:         opts,
		Now:             func() time.Time { return time.Now().UTC() },
		GoalIDGenerator: uuid.NewString,
	}
	e.ids = metrics.NewIDSource(func() time.Time { return e.Now() })
	return e
}

// Ping reports whether the store answers.
func (e *Engine) Ping(ctx context.Context) error {
	return e.convert("ping", e.Store.Ping(ctx))
}

// convert maps an adapter error onto an apperror kind. Errors that are
// already classified pass through.
func (e *Engine) convert(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return apperror.NotFound("%s", err.Error())
	case errors.Is(err, store.ErrConflict):
		return apperror.Conflict("%s", err.Error())
	case errors.Is(err, context.Canceled):
		e.Log.Debug("request cancelled", zap.String("op", op), zap.Error(err))
		return apperror.Unavailable(err, "request cancelled")
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		e.Log.Warn("store unavailable", zap.String("op", op), zap.Error(err))
		return apperror.Unavailable(err, "graph store unavailable")
	default:
		e.Log.Error("store operation failed", zap.String("op", op), zap.Error(err))
		return apperror.Internal(err, "%s failed", op)
	}
}

// guard turns a panic inside an operation into an Internal error.
func (e *Engine) guard(op string, errp *error) {
	if r := recover(); r != nil {
		e.Log.Error("operation panicked", zap.String("op", op), zap.Any("panic", r))
		*errp = apperror.Internal(fmt.Errorf("panic: %v", r), "%s failed", op)
	}
}

func requireID(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.InvalidArgument("%s is required", name)
	}
	return nil
}

func requirePair(nameA, a, nameB, b string) error {
	if err := requireID(nameA, a); err != nil {
		return err
	}
	if err := requireID(nameB, b); err != nil {
		return err
	}
	if a == b {
		return apperror.InvalidArgument("%s and %s must differ", nameA, nameB)
	}
	return nil
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperror.InvalidArgument("%s must be a finite number", name)
	}
	return nil
}

func (e *Engine) persona(ctx context.Context, op, id string) (*model.Persona, error) {
	p, err := e.Store.FindPersona(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Persona %s not found", id)
	}
	if err != nil {
		return nil, e.convert(op, err)
	}
	return p, nil
}

// namesFor returns the participant names in the order a, b.
func namesFor(r *model.Relationship, a string) []string {
	if r.Persona1ID == a {
		return []string{r.Persona1Name, r.Persona2Name}
	}
	return []string{r.Persona2Name, r.Persona1Name}
}

func noRelationship(a, b string) error {
	return apperror.NotFound("No relationship found between %s and %s", a, b)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
