package models

import (
	"time"

	"github.com/google/uuid"
)

// DayKey is one of the seven canonical day-of-week keys.
type DayKey string

const (
	Monday    DayKey = "monday"
	Tuesday   DayKey = "tuesday"
	Wednesday DayKey = "wednesday"
	Thursday  DayKey = "thursday"
	Friday    DayKey = "friday"
	Saturday  DayKey = "saturday"
	Sunday    DayKey = "sunday"
)

// Day identifies a training day: canonical key, display label and its fixed
// position in the week (Monday=1 ... Sunday=7).
type Day struct {
	Key       DayKey `json:"day_key"`
	Label     string `json:"day_label"`
	SortOrder int    `json:"sort_order"`
}

// ParsedExercise is one prescribed exercise produced by the plan importer.
type ParsedExercise struct {
	SortOrder         int     `json:"sort_order"`
	ExerciseName      string  `json:"exercise_name"`
	Intensity         *string `json:"intensity"`
	PrescribedSets    int     `json:"prescribed_sets"`
	PrescribedReps    *int    `json:"prescribed_reps"` // nil when a range is prescribed
	PrescribedRepsMin int     `json:"prescribed_reps_min"`
	PrescribedRepsMax int     `json:"prescribed_reps_max"`
	RawSetsReps       string  `json:"raw_sets_reps"`
}

// ParsedDay groups the exercises of one day of a week.
type ParsedDay struct {
	DayKey    DayKey           `json:"day_key"`
	DayLabel  string           `json:"day_label"`
	SortOrder int              `json:"sort_order"`
	Exercises []ParsedExercise `json:"exercises"`
}

// ParsedWeek groups the days of one plan week.
type ParsedWeek struct {
	WeekNumber int         `json:"week_number"`
	Days       []ParsedDay `json:"days"`
}

// ParsedTrainingPlan is the validated, normalized result of a plan import.
// Weeks are ordered by week number, days by day-of-week, exercises by sort order.
type ParsedTrainingPlan struct {
	Name  string       `json:"name"`
	Weeks []ParsedWeek `json:"weeks"`
}

// TrainingPlanPreview is the display-only projection shown before an import is confirmed.
type TrainingPlanPreview struct {
	Name           string        `json:"name"`
	TotalWeeks     int           `json:"total_weeks"`
	TotalDays      int           `json:"total_days"`
	TotalExercises int           `json:"total_exercises"`
	Weeks          []PreviewWeek `json:"weeks"`
}

type PreviewWeek struct {
	WeekNumber int          `json:"week_number"`
	Days       []PreviewDay `json:"days"`
}

type PreviewDay struct {
	DayKey    DayKey            `json:"day_key"`
	DayLabel  string            `json:"day_label"`
	Exercises []PreviewExercise `json:"exercises"`
}

type PreviewExercise struct {
	ExerciseName string  `json:"exercise_name"`
	Intensity    *string `json:"intensity"`
	RawSetsReps  string  `json:"raw_sets_reps"`
}

// PlanExercise is a persisted plan exercise. Prescribed fields may be null for
// rows written by older imports.
type PlanExercise struct {
	ID                uuid.UUID `json:"id"`
	SortOrder         int       `json:"sort_order"`
	ExerciseName      string    `json:"exercise_name"`
	Intensity         *string   `json:"intensity"`
	PrescribedSets    *int      `json:"prescribed_sets"`
	PrescribedReps    *int      `json:"prescribed_reps"`
	PrescribedRepsMin *int      `json:"prescribed_reps_min"`
	PrescribedRepsMax *int      `json:"prescribed_reps_max"`
	RawSetsReps       string    `json:"raw_sets_reps"`
}

// Prescribed returns the raw prescribed fields used for rule resolution.
func (e PlanExercise) Prescribed() PrescribedFields {
	return PrescribedFields{
		Sets:    e.PrescribedSets,
		Reps:    e.PrescribedReps,
		RepsMin: e.PrescribedRepsMin,
		RepsMax: e.PrescribedRepsMax,
	}
}

type PlanDay struct {
	ID        uuid.UUID      `json:"id"`
	DayKey    DayKey         `json:"day_key"`
	DayLabel  string         `json:"day_label"`
	SortOrder int            `json:"sort_order"`
	Exercises []PlanExercise `json:"exercises"`
}

type PlanWeek struct {
	ID         uuid.UUID `json:"id"`
	WeekNumber int       `json:"week_number"`
	Days       []PlanDay `json:"days"`
}

// ActivePlan is the read model of a user's current training plan.
type ActivePlan struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	SourceFilename string     `json:"source_filename"`
	SourceFilePath *string    `json:"source_file_path"`
	CreatedAt      time.Time  `json:"created_at"`
	Weeks          []PlanWeek `json:"weeks"`
}
