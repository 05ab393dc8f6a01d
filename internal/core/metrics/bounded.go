// Package metrics holds the arithmetic shared by every store implementation:
// bounded metric deltas, the rolling valence average and interaction ids.
package metrics

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/agenthands/lila/internal/core/model"
)

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ApplyDelta adds d to m, clamping each metric to [0,10] independently.
func ApplyDelta(m model.Metrics, d model.MetricDelta) model.Metrics {
	return model.Metrics{
		TrustLevel:           Clamp(m.TrustLevel+d.Trust, model.MinMetric, model.MaxMetric),
		IntimacyLevel:        Clamp(m.IntimacyLevel+d.Intimacy, model.MinMetric, model.MaxMetric),
		RelationshipStrength: Clamp(m.RelationshipStrength+d.Strength, model.MinMetric, model.MaxMetric),
	}
}

// Effective is the change actually applied between two metric states.
func Effective(before, after model.Metrics) model.MetricDelta {
	return model.MetricDelta{
		Trust:    after.TrustLevel - before.TrustLevel,
		Intimacy: after.IntimacyLevel - before.IntimacyLevel,
		Strength: after.RelationshipStrength - before.RelationshipStrength,
	}
}

// ClampMetrics limits seed or legacy values to the metric range.
func ClampMetrics(m model.Metrics) model.Metrics {
	return ApplyDelta(m, model.MetricDelta{})
}

// RollingValence folds an incoming valence into the running average with
// weight 0.5.
func RollingValence(old, incoming float64) float64 {
	return Clamp((incoming+old)/2, model.MinValence, model.MaxValence)
}

// ValidDelta reports whether every component is a finite number.
func ValidDelta(d model.MetricDelta) bool {
	return finite(d.Trust) && finite(d.Intimacy) && finite(d.Strength)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IDSource issues interaction ids of the form int_<sender>_<recipient>_<ms>.
// The millisecond stamp is strictly increasing for one source even when the
// wall clock stalls or steps back.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns the id and the timestamp it encodes.
func (s *IDSource) Next(sender, recipient string) (string, time.Time) {
	s.mu.Lock()
	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	s.mu.Unlock()

	return fmt.Sprintf("int_%s_%s_%d", sender, recipient, ms), time.UnixMilli(ms).UTC()
}
