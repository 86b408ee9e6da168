package sessionsets

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/models"
)

// CanonicalID returns the lowercase form of an RFC 4122 version 1-5 UUID in
// its 36-character textual form.
func CanonicalID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 36 {
		return "", false
	}
	id, err := uuid.Parse(s)
	if err != nil || id.Variant() != uuid.RFC4122 || id.Version() < 1 || id.Version() > 5 {
		return "", false
	}
	return id.String(), true
}

var intRe = regexp.MustCompile(`^-?\d+$`)

// toInt accepts integral JSON numbers and strings of digits with an optional sign.
func toInt(v models.FlexValue) (int, bool) {
	text := strings.TrimSpace(v.Text)
	if v.Number {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, false
		}
		return int(f), true
	}
	if !intRe.MatchString(text) {
		return 0, false
	}
	n, err := strconv.Atoi(text)
	return n, err == nil
}

// toFloat accepts JSON numbers and decimal strings; a decimal comma is allowed.
func toFloat(v models.FlexValue) (float64, bool) {
	text := strings.TrimSpace(v.Text)
	if !v.Number {
		text = strings.Replace(text, ",", ".", 1)
	}
	if text == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ValidateAndNormalize checks submitted rows against the day's rules and
// returns the deduplicated sets. Rows sharing (exercise, set number) collapse
// to the last one, keeping the position of the first. Every exercise in rules
// must end up with exactly its effective set count. Rule keys are canonical
// (lowercase) exercise ids.
func ValidateAndNormalize(rules map[string]models.ExerciseRule, rows []models.RawSetRow) ([]models.SessionSetInput, error) {
	var (
		order   []models.SetKey
		byKey   = make(map[models.SetKey]models.SessionSetInput)
		repsFor = make(map[string]int)
	)

	for i, row := range rows {
		n := i + 1

		id, ok := CanonicalID(row.PlanExerciseID.Text)
		if !ok {
			return nil, &ValidationError{Code: CodeInvalidExerciseID, Row: n}
		}
		rule, ok := rules[id]
		if !ok {
			return nil, &ValidationError{Code: CodeForeignExercise, Row: n, ExerciseID: id}
		}

		if strings.TrimSpace(row.SetNumber.Text) == "" || strings.TrimSpace(row.Reps.Text) == "" || strings.TrimSpace(row.Weight.Text) == "" {
			return nil, &ValidationError{Code: CodeMissingField, Row: n, ExerciseID: id}
		}

		setNumber, ok := toInt(row.SetNumber)
		if !ok || setNumber <= 0 {
			return nil, &ValidationError{Code: CodeInvalidSetNumber, Row: n, ExerciseID: id}
		}
		if setNumber > rule.EffectiveSetCount {
			return nil, &ValidationError{Code: CodeSetNumberExceedsPlan, Row: n, ExerciseID: id, Expected: rule.EffectiveSetCount, Actual: setNumber}
		}

		reps, ok := toInt(row.Reps)
		if !ok || reps < 0 {
			return nil, &ValidationError{Code: CodeInvalidReps, Row: n, ExerciseID: id}
		}
		if reps < rule.EffectiveRepsMin || reps > rule.EffectiveRepsMax {
			return nil, &ValidationError{Code: CodeRepsOutOfRange, Row: n, ExerciseID: id, Min: rule.EffectiveRepsMin, Max: rule.EffectiveRepsMax, Actual: reps}
		}

		weight, ok := toFloat(row.Weight)
		if !ok || weight < 0 {
			return nil, &ValidationError{Code: CodeInvalidWeight, Row: n, ExerciseID: id}
		}

		if prev, seen := repsFor[id]; seen && prev != reps {
			return nil, &ValidationError{Code: CodeInconsistentReps, Row: n, ExerciseID: id, Expected: prev, Actual: reps}
		}
		repsFor[id] = reps

		set := models.SessionSetInput{PlanExerciseID: id, SetNumber: setNumber, Reps: reps, Weight: weight}
		if _, seen := byKey[set.Key()]; !seen {
			order = append(order, set.Key())
		}
		byKey[set.Key()] = set
	}

	if len(order) == 0 {
		return nil, &ValidationError{Code: CodeNoSets}
	}

	counts := make(map[string]int)
	for _, k := range order {
		counts[k.PlanExerciseID]++
	}
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if want := rules[id].EffectiveSetCount; counts[id] != want {
			return nil, &ValidationError{Code: CodeIncompleteExercise, ExerciseID: id, Expected: want, Actual: counts[id]}
		}
	}

	out := make([]models.SessionSetInput, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, nil
}
