package sessionsets

import (
	"sort"

	"github.com/meltforce/trainingdiary/internal/models"
)

// PruneInstruction describes which persisted sets of a session must go after
// an accepted submission: any set of a listed exercise whose key is not in
// AllowedKeys.
type PruneInstruction struct {
	PlanExerciseIDs []string
	AllowedKeys     map[models.SetKey]struct{}
}

// BuildPrune derives the prune instruction for the day's rules and the
// accepted sets.
func BuildPrune(rules map[string]models.ExerciseRule, sets []models.SessionSetInput) PruneInstruction {
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	allowed := make(map[models.SetKey]struct{}, len(sets))
	for _, s := range sets {
		allowed[s.Key()] = struct{}{}
	}
	return PruneInstruction{PlanExerciseIDs: ids, AllowedKeys: allowed}
}

// Keys returns the allowed keys in a stable order.
func (p PruneInstruction) Keys() []models.SetKey {
	keys := make([]models.SetKey, 0, len(p.AllowedKeys))
	for k := range p.AllowedKeys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PlanExerciseID != keys[j].PlanExerciseID {
			return keys[i].PlanExerciseID < keys[j].PlanExerciseID
		}
		return keys[i].SetNumber < keys[j].SetNumber
	})
	return keys
}
