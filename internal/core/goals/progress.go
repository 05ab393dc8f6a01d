// Package goals scores progress toward relationship goals.
package goals

import (
	"fmt"
	"strings"
)

// Baseline is reported as overall progress when no goals are given.
const Baseline = 0.05

const defaultIncrement = 0.10

type keyword struct {
	word      string
	goalType  string
	increment float64
}

// keywords are matched in order; the first hit decides the increment.
var keywords = []keyword{
	{"trust", "trust", 0.15},
	{"intimacy", "intimacy", 0.08},
	{"vulnerability", "vulnerability", 0.12},
}

type GoalProgress struct {
	Goal       string  `json:"goal"`
	GoalType   string  `json:"goal_type"`
	Progress   float64 `json:"progress"`
	Assessment string  `json:"assessment"`
}

type Assessment struct {
	Goals   []GoalProgress `json:"assessed_goals"`
	Overall float64        `json:"overall_progress"`
}

// Parse splits a comma separated goal list, dropping blank entries.
func Parse(list string) []string {
	var out []string
	for _, g := range strings.Split(list, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// Classify returns the goal type and progress increment for a single goal.
func Classify(goal string) (string, float64) {
	lower := strings.ToLower(goal)
	for _, k := range keywords {
		if strings.Contains(lower, k.word) {
			return k.goalType, k.increment
		}
	}
	return "general", defaultIncrement
}

// Assess scores every goal in list and averages them without weighting.
func Assess(list string) Assessment {
	parsed := Parse(list)
	a := Assessment{Goals: make([]GoalProgress, 0, len(parsed)), Overall: Baseline}
	if len(parsed) == 0 {
		return a
	}

	var sum float64
	for _, g := range parsed {
		typ, inc := Classify(g)
		a.Goals = append(a.Goals, GoalProgress{
			Goal:       g,
			GoalType:   typ,
			Progress:   inc,
			Assessment: fmt.Sprintf("Progress toward %s is steady", g),
		})
		sum += inc
	}
	a.Overall = sum / float64(len(parsed))
	return a
}
