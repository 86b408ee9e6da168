// Package sessionsets validates the sets a user submits for a workout session
// against the rules of the plan day.
package sessionsets

import "github.com/meltforce/trainingdiary/internal/models"

// RepsRange is a resolved reps window. IsFallback is set when the plan
// prescribes nothing usable and the 1..1 default applies.
type RepsRange struct {
	Min        int
	Max        int
	IsFallback bool
}

func positive(v *int) bool {
	return v != nil && *v > 0
}

// ResolveEffectiveSetCount returns the prescribed set count, or 1 when it is
// missing or not positive.
func ResolveEffectiveSetCount(prescribedSets *int) int {
	if positive(prescribedSets) {
		return *prescribedSets
	}
	return 1
}

// ResolveEffectiveRepsRange picks the reps window in order of preference:
// a valid min..max range, the single prescribed value, min alone, max alone,
// then the 1..1 fallback.
func ResolveEffectiveRepsRange(reps, repsMin, repsMax *int) RepsRange {
	switch {
	case positive(repsMin) && positive(repsMax) && *repsMin <= *repsMax:
		return RepsRange{Min: *repsMin, Max: *repsMax}
	case positive(reps):
		return RepsRange{Min: *reps, Max: *reps}
	case positive(repsMin):
		return RepsRange{Min: *repsMin, Max: *repsMin}
	case positive(repsMax):
		return RepsRange{Min: *repsMax, Max: *repsMax}
	default:
		return RepsRange{Min: 1, Max: 1, IsFallback: true}
	}
}

// ResolveRule turns stored prescription fields into an always-usable rule.
func ResolveRule(p models.PrescribedFields) models.ExerciseRule {
	r := ResolveEffectiveRepsRange(p.Reps, p.RepsMin, p.RepsMax)
	return models.ExerciseRule{
		EffectiveSetCount: ResolveEffectiveSetCount(p.Sets),
		EffectiveRepsMin:  r.Min,
		EffectiveRepsMax:  r.Max,
		IsRepsFallback:    r.IsFallback,
	}
}
