// Package progression decides the next session's sets for an exercise from
// the sets recorded the last time it was performed.
package progression

import (
	"strings"

	"github.com/claude/ironlog/internal/models"
)

// DefaultIncrement is the weight added on promotion when an exercise has no
// increment configured.
const DefaultIncrement = 2.5

// Failure reasons reported in Result.FailureReason.
const (
	ReasonNoTargetReps  = "No target reps defined"
	ReasonNoHistory     = "No history found"
	ReasonInvalidReps   = "Invalid target reps format"
	ReasonNoWeight      = "Last run had no weight recorded"
	ReasonMissedTargets = "Did not hit target reps on all sets"
)

// DiffType is the outcome of a progression decision.
type DiffType string

const (
	Promotion DiffType = "PROMOTION"
	Reset     DiffType = "RESET"
)

// Exercise is the progression configuration of one routine assignment.
type Exercise struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           models.Modality `json:"type"`
	TargetReps     *string         `json:"target_reps"`
	TargetSets     *string         `json:"target_sets"`
	IncrementValue *float64        `json:"increment_value"`
}

// Diff summarises what changed between the last and next session.
type Diff struct {
	ExerciseName string   `json:"exercise_name"`
	OldWeight    float64  `json:"old_weight"`
	OldReps      int      `json:"old_reps"`
	NewWeight    float64  `json:"new_weight"`
	NewReps      int      `json:"new_reps"`
	Type         DiffType `json:"type"`
}

// Result is the proposed set list for the next session.
type Result struct {
	NewSets       []models.WorkoutSet `json:"new_sets"`
	Diff          *Diff               `json:"diff"`
	Applied       bool                `json:"applied"`
	FailureReason string              `json:"failure_reason,omitempty"`
}

// CreateEmptySet returns a blank NORMAL set shaped for the modality.
// Anything other than CARDIO gets the weight shape.
func CreateEmptySet(m models.Modality) models.WorkoutSet {
	if m == models.ModalityCardio {
		return models.WorkoutSet{
			Duration: models.Blank(),
			Distance: models.Blank(),
			Calories: models.Blank(),
			Type:     models.SetNormal,
		}
	}
	return models.WorkoutSet{
		Weight: models.Blank(),
		Reps:   models.Blank(),
		Type:   models.SetNormal,
	}
}

// Apply computes the next session's sets. Warmups are carried over first,
// failure/dropset/pain sets are dropped, and working sets are either promoted
// to a heavier weight or reset to the minimum reps at the same weight.
func Apply(ex Exercise, lastSets []models.WorkoutSet) Result {
	if ex.TargetReps == nil || strings.TrimSpace(*ex.TargetReps) == "" {
		return Result{NewSets: []models.WorkoutSet{}, FailureReason: ReasonNoTargetReps}
	}
	if len(lastSets) == 0 {
		return Result{NewSets: []models.WorkoutSet{}, FailureReason: ReasonNoHistory}
	}
	scheme, err := ParseRepScheme(*ex.TargetReps)
	if err != nil {
		return Result{NewSets: []models.WorkoutSet{}, FailureReason: ReasonInvalidReps}
	}

	var working, warmups []models.WorkoutSet
	for _, s := range lastSets {
		switch s.Type.Normalize() {
		case models.SetNormal:
			working = append(working, s)
		case models.SetWarmup:
			warmups = append(warmups, s)
		}
	}

	next := make([]models.WorkoutSet, 0, len(warmups)+max(len(working), TargetSetCount(ex.TargetSets)))
	for _, w := range warmups {
		next = append(next, carry(ex.Type, w, models.SetWarmup))
	}

	var lastWeight float64
	if len(working) > 0 {
		lastWeight = working[0].Weight.Float()
	}
	if lastWeight == 0 {
		for _, s := range working {
			next = append(next, carry(ex.Type, s, models.SetNormal))
		}
		return Result{NewSets: next, FailureReason: ReasonNoWeight}
	}

	if qualified(scheme, working) {
		weight := lastWeight + increment(ex.IncrementValue)
		next = appendWorking(next, ex, scheme, weight, len(working))
		newReps := scheme.MinReps()
		if scheme.PerSet() {
			newReps = scheme.First()
		}
		return Result{
			NewSets: next,
			Applied: true,
			Diff: &Diff{
				ExerciseName: ex.Name,
				OldWeight:    lastWeight,
				OldReps:      scheme.First(),
				NewWeight:    weight,
				NewReps:      newReps,
				Type:         Promotion,
			},
		}
	}

	next = appendWorking(next, ex, scheme, lastWeight, len(working))
	return Result{
		NewSets:       next,
		Applied:       true,
		FailureReason: ReasonMissedTargets,
		Diff: &Diff{
			ExerciseName: ex.Name,
			OldWeight:    lastWeight,
			OldReps:      scheme.MinReps(),
			NewWeight:    lastWeight,
			NewReps:      scheme.MinReps(),
			Type:         Reset,
		},
	}
}

// qualified reports whether every working set reached its target.
func qualified(scheme RepScheme, working []models.WorkoutSet) bool {
	if scheme.PerSet() && len(working) == 0 {
		return false
	}
	for i, s := range working {
		if s.Reps.Float() < float64(scheme.Target(i)) {
			return false
		}
	}
	return true
}

// appendWorking adds one regenerated set per historical working set, then
// tops up to the exercise's target set count.
func appendWorking(dst []models.WorkoutSet, ex Exercise, scheme RepScheme, weight float64, historical int) []models.WorkoutSet {
	count := max(historical, TargetSetCount(ex.TargetSets))
	for i := 0; i < count; i++ {
		reps := scheme.MinReps()
		if scheme.PerSet() {
			reps = scheme.Target(i)
		}
		s := CreateEmptySet(ex.Type)
		s.Weight = models.NumOf(weight)
		s.Reps = models.NumOf(float64(reps))
		dst = append(dst, s)
	}
	return dst
}

// carry copies weight and reps of a historical set onto a fresh set.
func carry(m models.Modality, src models.WorkoutSet, t models.SetType) models.WorkoutSet {
	s := CreateEmptySet(m)
	if src.Weight != nil {
		s.Weight = src.Weight.Clone()
	}
	if src.Reps != nil {
		s.Reps = src.Reps.Clone()
	}
	s.Type = t
	return s
}

func increment(v *float64) float64 {
	if v == nil {
		return DefaultIncrement
	}
	return *v
}
