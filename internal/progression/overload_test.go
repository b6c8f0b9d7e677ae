package progression

import (
	"encoding/json"
	"testing"

	"github.com/claude/ironlog/internal/models"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func set(weight, reps float64, t models.SetType) models.WorkoutSet {
	return models.WorkoutSet{Weight: models.NumOf(weight), Reps: models.NumOf(reps), Completed: true, Type: t}
}

func normals(weight float64, reps ...float64) []models.WorkoutSet {
	var out []models.WorkoutSet
	for _, r := range reps {
		out = append(out, set(weight, r, models.SetNormal))
	}
	return out
}

func benchPress(targetReps, targetSets string) Exercise {
	ex := Exercise{ID: "ex-1", Name: "Bench Press", Type: models.ModalityWeight, IncrementValue: floatPtr(2.5)}
	if targetReps != "" {
		ex.TargetReps = strPtr(targetReps)
	}
	if targetSets != "" {
		ex.TargetSets = strPtr(targetSets)
	}
	return ex
}

func assertSet(t *testing.T, i int, got models.WorkoutSet, weight, reps float64, typ models.SetType) {
	t.Helper()
	if w := got.Weight.Float(); w != weight {
		t.Errorf("set[%d].weight = %v, want %v", i, w, weight)
	}
	if r := got.Reps.Float(); r != reps {
		t.Errorf("set[%d].reps = %v, want %v", i, r, reps)
	}
	if got.Type != typ {
		t.Errorf("set[%d].type = %q, want %q", i, got.Type, typ)
	}
}

// TestApplyPromotion verifies that hitting the top of the range on every set
// adds the increment and resets reps to the bottom of the range.
func TestApplyPromotion(t *testing.T) {
	res := Apply(benchPress("8-12", "3"), normals(60, 12, 12, 12))

	if !res.Applied {
		t.Fatalf("applied = false, reason %q", res.FailureReason)
	}
	if res.FailureReason != "" {
		t.Errorf("failure_reason = %q, want empty", res.FailureReason)
	}
	if res.Diff == nil {
		t.Fatal("diff is nil")
	}
	if res.Diff.Type != Promotion {
		t.Errorf("diff.type = %q, want PROMOTION", res.Diff.Type)
	}
	if res.Diff.OldWeight != 60 || res.Diff.NewWeight != 62.5 {
		t.Errorf("diff weights = %v -> %v, want 60 -> 62.5", res.Diff.OldWeight, res.Diff.NewWeight)
	}
	if res.Diff.OldReps != 12 {
		t.Errorf("diff.old_reps = %d, want 12", res.Diff.OldReps)
	}
	if res.Diff.NewReps != 8 {
		t.Errorf("diff.new_reps = %d, want 8", res.Diff.NewReps)
	}
	if len(res.NewSets) != 3 {
		t.Fatalf("sets = %d, want 3", len(res.NewSets))
	}
	for i, s := range res.NewSets {
		assertSet(t, i, s, 62.5, 8, models.SetNormal)
		if s.Completed {
			t.Errorf("set[%d] completed = true, want false", i)
		}
	}
}

// TestApplyReset verifies that missing the target on any set keeps the weight
// and resets every set to the minimum reps.
func TestApplyReset(t *testing.T) {
	res := Apply(benchPress("8-12", "3"), normals(60, 12, 10, 8))

	if !res.Applied {
		t.Fatal("applied = false, want true for reset")
	}
	if res.FailureReason != ReasonMissedTargets {
		t.Errorf("failure_reason = %q, want %q", res.FailureReason, ReasonMissedTargets)
	}
	if res.Diff == nil || res.Diff.Type != Reset {
		t.Fatalf("diff = %+v, want RESET", res.Diff)
	}
	if res.Diff.OldWeight != 60 || res.Diff.NewWeight != 60 {
		t.Errorf("diff weights = %v -> %v, want 60 -> 60", res.Diff.OldWeight, res.Diff.NewWeight)
	}
	if res.Diff.OldReps != 8 || res.Diff.NewReps != 8 {
		t.Errorf("diff reps = %d -> %d, want 8 -> 8", res.Diff.OldReps, res.Diff.NewReps)
	}
	if len(res.NewSets) != 3 {
		t.Fatalf("sets = %d, want 3", len(res.NewSets))
	}
	for i, s := range res.NewSets {
		assertSet(t, i, s, 60, 8, models.SetNormal)
	}
}

// TestApplyPreservesWarmups verifies warmups are carried over verbatim and
// placed before the promoted working sets.
func TestApplyPreservesWarmups(t *testing.T) {
	history := []models.WorkoutSet{
		set(20, 10, models.SetWarmup),
		set(40, 6, models.SetWarmup),
	}
	history = append(history, normals(60, 12, 12, 12)...)

	res := Apply(benchPress("8-12", "3"), history)

	if len(res.NewSets) != 5 {
		t.Fatalf("sets = %d, want 5", len(res.NewSets))
	}
	assertSet(t, 0, res.NewSets[0], 20, 10, models.SetWarmup)
	assertSet(t, 1, res.NewSets[1], 40, 6, models.SetWarmup)
	for i := 2; i < 5; i++ {
		assertSet(t, i, res.NewSets[i], 62.5, 8, models.SetNormal)
	}
}

// TestApplyDropsInvalidSetTypes verifies failure and dropset sets never reach
// the output and that missing working sets are filled up to target.
func TestApplyDropsInvalidSetTypes(t *testing.T) {
	history := []models.WorkoutSet{
		set(20, 10, models.SetWarmup),
		set(60, 12, models.SetNormal),
		set(60, 4, models.SetFailure),
		set(60, 12, ""),
		set(40, 15, models.SetDropset),
		set(50, 3, models.SetPain),
	}

	res := Apply(benchPress("8-12", "3"), history)

	if !res.Applied || res.Diff.Type != Promotion {
		t.Fatalf("result = %+v, want applied promotion", res)
	}
	if len(res.NewSets) != 4 {
		t.Fatalf("sets = %d, want 4 (1 warmup + 3 working)", len(res.NewSets))
	}
	assertSet(t, 0, res.NewSets[0], 20, 10, models.SetWarmup)
	for i := 1; i < 4; i++ {
		assertSet(t, i, res.NewSets[i], 62.5, 8, models.SetNormal)
	}
	for i, s := range res.NewSets {
		switch s.Type {
		case models.SetFailure, models.SetDropset, models.SetPain:
			t.Errorf("set[%d] has excluded type %q", i, s.Type)
		}
	}
}

// TestApplyWarmupsOnly verifies that a history without working sets returns
// only the warmups and does not apply.
func TestApplyWarmupsOnly(t *testing.T) {
	history := []models.WorkoutSet{
		set(20, 10, models.SetWarmup),
		set(30, 8, models.SetWarmup),
	}

	res := Apply(benchPress("8-12", "3"), history)

	if res.Applied {
		t.Error("applied = true, want false")
	}
	if res.Diff != nil {
		t.Errorf("diff = %+v, want nil", res.Diff)
	}
	if res.FailureReason != ReasonNoWeight {
		t.Errorf("failure_reason = %q, want %q", res.FailureReason, ReasonNoWeight)
	}
	if len(res.NewSets) != 2 {
		t.Fatalf("sets = %d, want 2", len(res.NewSets))
	}
	assertSet(t, 0, res.NewSets[0], 20, 10, models.SetWarmup)
	assertSet(t, 1, res.NewSets[1], 30, 8, models.SetWarmup)
}

// TestApplyDefaultIncrement verifies a nil increment falls back to 2.5.
func TestApplyDefaultIncrement(t *testing.T) {
	ex := benchPress("8-12", "")
	ex.IncrementValue = nil

	res := Apply(ex, normals(60, 12))

	if !res.Applied || res.Diff.NewWeight != 62.5 {
		t.Fatalf("new weight = %+v, want 62.5", res.Diff)
	}
	if len(res.NewSets) != 1 {
		t.Errorf("sets = %d, want 1", len(res.NewSets))
	}
}

// TestApplyCustomIncrement verifies a configured increment is used as is.
func TestApplyCustomIncrement(t *testing.T) {
	ex := benchPress("5", "")
	ex.IncrementValue = floatPtr(5)

	res := Apply(ex, normals(100, 5, 5))

	if res.Diff == nil || res.Diff.NewWeight != 105 {
		t.Fatalf("diff = %+v, want new weight 105", res.Diff)
	}
	for i, s := range res.NewSets {
		assertSet(t, i, s, 105, 5, models.SetNormal)
	}
}

// TestApplyEarlyExits verifies the hard stops return an empty, non-nil set
// list and the documented reasons.
func TestApplyEarlyExits(t *testing.T) {
	tests := []struct {
		name    string
		ex      Exercise
		history []models.WorkoutSet
		reason  string
	}{
		{"nil target reps", benchPress("", "3"), normals(60, 12), ReasonNoTargetReps},
		{"blank target reps", Exercise{Name: "Row", TargetReps: strPtr("  ")}, normals(60, 12), ReasonNoTargetReps},
		{"target reps checked before history", benchPress("", ""), nil, ReasonNoTargetReps},
		{"nil history", benchPress("8-12", "3"), nil, ReasonNoHistory},
		{"empty history", benchPress("8-12", "3"), []models.WorkoutSet{}, ReasonNoHistory},
		{"garbage target reps", benchPress("abc", "3"), normals(60, 12), ReasonInvalidReps},
		{"garbage list token", benchPress("8,x,3", "3"), normals(60, 12), ReasonInvalidReps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(tt.ex, tt.history)
			if res.Applied {
				t.Error("applied = true, want false")
			}
			if res.FailureReason != tt.reason {
				t.Errorf("failure_reason = %q, want %q", res.FailureReason, tt.reason)
			}
			if res.NewSets == nil || len(res.NewSets) != 0 {
				t.Errorf("new_sets = %v, want empty non-nil slice", res.NewSets)
			}
			if res.Diff != nil {
				t.Errorf("diff = %+v, want nil", res.Diff)
			}
		})
	}
}

// TestApplyCommaPattern verifies per-index targets for reverse pyramids,
// including the last target repeating for extra sets.
func TestApplyCommaPattern(t *testing.T) {
	ex := benchPress("8,5,3", "4")

	res := Apply(ex, normals(80, 8, 5, 3))

	if !res.Applied || res.Diff.Type != Promotion {
		t.Fatalf("result = %+v, want promotion", res)
	}
	if res.Diff.OldReps != 8 || res.Diff.NewReps != 8 {
		t.Errorf("diff reps = %d -> %d, want 8 -> 8", res.Diff.OldReps, res.Diff.NewReps)
	}
	want := []float64{8, 5, 3, 3}
	if len(res.NewSets) != len(want) {
		t.Fatalf("sets = %d, want %d", len(res.NewSets), len(want))
	}
	for i, reps := range want {
		assertSet(t, i, res.NewSets[i], 82.5, reps, models.SetNormal)
	}
}

// TestApplyCommaPatternReset verifies a missed per-index target resets with
// per-index reps and reports the last pattern element as minimum reps.
func TestApplyCommaPatternReset(t *testing.T) {
	res := Apply(benchPress("8,5,3", ""), normals(80, 8, 4, 3))

	if res.Diff == nil || res.Diff.Type != Reset {
		t.Fatalf("diff = %+v, want RESET", res.Diff)
	}
	if res.Diff.OldReps != 3 {
		t.Errorf("diff.old_reps = %d, want 3", res.Diff.OldReps)
	}
	for i, reps := range []float64{8, 5, 3} {
		assertSet(t, i, res.NewSets[i], 80, reps, models.SetNormal)
	}
}

// TestApplyExtraSetsUseLastTarget verifies a working set beyond the pattern
// length is checked against the last pattern value.
func TestApplyExtraSetsUseLastTarget(t *testing.T) {
	res := Apply(benchPress("8,5", ""), normals(80, 8, 5, 4))
	if res.Diff == nil || res.Diff.Type != Reset {
		t.Fatalf("diff = %+v, want RESET since set 3 missed 5 reps", res.Diff)
	}
}

// TestApplyNoWeightFallback verifies that weight absence wins over the
// promotion branch and keeps the working sets as they were.
func TestApplyNoWeightFallback(t *testing.T) {
	history := []models.WorkoutSet{
		{Weight: models.Blank(), Reps: models.NumOf(12), Type: models.SetNormal},
		{Reps: models.NumOf(12)},
	}

	res := Apply(benchPress("8-12", "3"), history)

	if res.Applied {
		t.Error("applied = true, want false")
	}
	if res.FailureReason != ReasonNoWeight {
		t.Errorf("failure_reason = %q, want %q", res.FailureReason, ReasonNoWeight)
	}
	if len(res.NewSets) != 2 {
		t.Fatalf("sets = %d, want 2 (no fill on fallback)", len(res.NewSets))
	}
	for i, s := range res.NewSets {
		if s.Type != models.SetNormal {
			t.Errorf("set[%d].type = %q, want NORMAL", i, s.Type)
		}
		if _, ok := s.Weight.Value(); ok {
			t.Errorf("set[%d].weight present, want blank", i)
		}
		if s.Reps.Float() != 12 {
			t.Errorf("set[%d].reps = %v, want 12", i, s.Reps.Float())
		}
	}
}

// TestApplyZeroWeightIsNoWeight verifies a recorded weight of zero counts as
// no weight.
func TestApplyZeroWeightIsNoWeight(t *testing.T) {
	res := Apply(benchPress("10", ""), normals(0, 10, 10))
	if res.Applied || res.FailureReason != ReasonNoWeight {
		t.Errorf("result = %+v, want no-weight fallback", res)
	}
}

// TestApplyMissingRepsFailQualification verifies a set without reps counts as
// zero reps.
func TestApplyMissingRepsFailQualification(t *testing.T) {
	history := []models.WorkoutSet{
		set(60, 12, models.SetNormal),
		{Weight: models.NumOf(60), Reps: models.Blank()},
	}
	res := Apply(benchPress("8-12", ""), history)
	if res.Diff == nil || res.Diff.Type != Reset {
		t.Errorf("diff = %+v, want RESET", res.Diff)
	}
}

// TestApplyFillNeverRemoves verifies history with more working sets than the
// target keeps all of them.
func TestApplyFillNeverRemoves(t *testing.T) {
	res := Apply(benchPress("8-12", "2"), normals(60, 12, 12, 12, 12))
	if len(res.NewSets) != 4 {
		t.Errorf("sets = %d, want 4", len(res.NewSets))
	}
}

// TestApplyTargetSets verifies how the target set count drives top-up.
func TestApplyTargetSets(t *testing.T) {
	tests := []struct {
		name       string
		targetSets string
		want       int
	}{
		{"fills up", "5", 5},
		{"equal to history", "2", 2},
		{"unparsable", "three", 2},
		{"zero", "0", 2},
		{"spaces", " 4 ", 4},
		{"at maximum", "50", 50},
		{"above maximum", "51", 2},
		{"int64 overflow", "9223372036854775807", 2},
		{"huge", "200000000", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := benchPress("8-12", "")
			ex.TargetSets = strPtr(tt.targetSets)
			res := Apply(ex, normals(60, 9, 9))
			if len(res.NewSets) != tt.want {
				t.Errorf("sets = %d, want %d", len(res.NewSets), tt.want)
			}
		})
	}
}

// TestApplyResetFillsUp verifies reset also tops up to the target set count.
func TestApplyResetFillsUp(t *testing.T) {
	res := Apply(benchPress("8-12", "3"), normals(60, 10))
	if len(res.NewSets) != 3 {
		t.Fatalf("sets = %d, want 3", len(res.NewSets))
	}
	for i, s := range res.NewSets {
		assertSet(t, i, s, 60, 8, models.SetNormal)
	}
}

// TestApplyUsesFirstWorkingWeight verifies later working weights do not move
// the baseline.
func TestApplyUsesFirstWorkingWeight(t *testing.T) {
	history := []models.WorkoutSet{
		set(20, 10, models.SetWarmup),
		set(100, 5, models.SetNormal),
		set(90, 5, models.SetNormal),
	}
	res := Apply(benchPress("5", ""), history)
	if res.Diff == nil || res.Diff.OldWeight != 100 || res.Diff.NewWeight != 102.5 {
		t.Errorf("diff = %+v, want 100 -> 102.5", res.Diff)
	}
}

// TestApplyCompounds verifies that promoting a promoted result increments
// again.
func TestApplyCompounds(t *testing.T) {
	ex := benchPress("5", "")
	first := Apply(ex, normals(100, 5, 5))
	second := Apply(ex, first.NewSets)
	if second.Diff == nil || second.Diff.NewWeight != 105 {
		t.Errorf("second diff = %+v, want new weight 105", second.Diff)
	}
}

// TestApplyCardioShape verifies sets for cardio exercises keep the cardio
// fields from the empty-set factory.
func TestApplyCardioShape(t *testing.T) {
	ex := Exercise{Name: "Rower", Type: models.ModalityCardio, TargetReps: strPtr("10")}
	history := []models.WorkoutSet{
		{Weight: models.NumOf(10), Reps: models.NumOf(10), Duration: models.NumOf(600)},
	}
	res := Apply(ex, history)
	if len(res.NewSets) != 1 {
		t.Fatalf("sets = %d, want 1", len(res.NewSets))
	}
	s := res.NewSets[0]
	if s.Duration == nil || s.Distance == nil || s.Calories == nil {
		t.Fatalf("cardio fields missing: %+v", s)
	}
	if _, ok := s.Duration.Value(); ok {
		t.Error("duration carried over, want blank")
	}
}

// TestApplyDoesNotAliasInput verifies that the output shares no numeric
// storage with the history.
func TestApplyDoesNotAliasInput(t *testing.T) {
	history := []models.WorkoutSet{set(20, 10, models.SetWarmup), set(60, 5, models.SetNormal)}
	res := Apply(benchPress("8-12", ""), history)
	if res.NewSets[0].Weight == history[0].Weight {
		t.Error("warmup weight pointer aliases history")
	}
}

// TestResultJSON verifies the wire shape of a result.
func TestResultJSON(t *testing.T) {
	res := Apply(benchPress("8-12", ""), nil)
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"new_sets":[],"diff":null,"applied":false,"failure_reason":"No history found"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

// TestCreateEmptySet verifies the factory's two shapes.
func TestCreateEmptySet(t *testing.T) {
	tests := []struct {
		modality models.Modality
		want     string
	}{
		{models.ModalityWeight, `{"weight":"","reps":"","completed":false,"type":"NORMAL"}`},
		{models.ModalityCardio, `{"duration":"","distance":"","calories":"","completed":false,"type":"NORMAL"}`},
		{"", `{"weight":"","reps":"","completed":false,"type":"NORMAL"}`},
		{"YOGA", `{"weight":"","reps":"","completed":false,"type":"NORMAL"}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.modality), func(t *testing.T) {
			data, err := json.Marshal(CreateEmptySet(tt.modality))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}
