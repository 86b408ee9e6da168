package planimport

import (
	"sort"

	"github.com/meltforce/trainingdiary/internal/models"
)

type dayRef struct {
	week int
	day  models.DayKey
}

type draftExercise struct {
	week     int
	day      models.Day
	exercise models.ParsedExercise
}

// planBuilder accumulates exercises of one import in encounter order.
// Grouping into weeks and days happens once, in build.
type planBuilder struct {
	items  []draftExercise
	counts map[dayRef]int
}

func newPlanBuilder() *planBuilder {
	return &planBuilder{counts: make(map[dayRef]int)}
}

// add appends an exercise to the given week and day. It fails once the import
// holds more than MaxExercisesTotal exercises.
func (b *planBuilder) add(week int, day models.Day, ex *rowExercise) error {
	if total := len(b.items) + 1; total > MaxExercisesTotal {
		return &ImportError{Code: CodeTooManyExercises, Count: total, Limit: MaxExercisesTotal}
	}
	ref := dayRef{week: week, day: day.Key}
	b.counts[ref]++

	sr := ex.SetsReps
	b.items = append(b.items, draftExercise{
		week: week,
		day:  day,
		exercise: models.ParsedExercise{
			SortOrder:         b.counts[ref],
			ExerciseName:      ex.Name,
			Intensity:         ex.Intensity,
			PrescribedSets:    sr.Sets,
			PrescribedReps:    sr.Reps,
			PrescribedRepsMin: sr.RepsMin,
			PrescribedRepsMax: sr.RepsMax,
			RawSetsReps:       sr.Raw,
		},
	})
	return nil
}

// build groups the accumulated exercises: weeks ascending, days by day of
// week, exercises in encounter order.
func (b *planBuilder) build(name string) (*models.ParsedTrainingPlan, error) {
	if len(b.items) == 0 {
		return nil, &ImportError{Code: CodeNoExercises}
	}

	items := make([]draftExercise, len(b.items))
	copy(items, b.items)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].week != items[j].week {
			return items[i].week < items[j].week
		}
		return items[i].day.SortOrder < items[j].day.SortOrder
	})

	plan := &models.ParsedTrainingPlan{Name: name}
	for _, it := range items {
		if n := len(plan.Weeks); n == 0 || plan.Weeks[n-1].WeekNumber != it.week {
			plan.Weeks = append(plan.Weeks, models.ParsedWeek{WeekNumber: it.week})
		}
		week := &plan.Weeks[len(plan.Weeks)-1]
		if n := len(week.Days); n == 0 || week.Days[n-1].DayKey != it.day.Key {
			week.Days = append(week.Days, models.ParsedDay{
				DayKey:    it.day.Key,
				DayLabel:  it.day.Label,
				SortOrder: it.day.SortOrder,
			})
		}
		day := &week.Days[len(week.Days)-1]
		day.Exercises = append(day.Exercises, it.exercise)
	}
	return plan, nil
}
