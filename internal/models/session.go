package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a workout session.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// PrescribedFields are the raw prescribed values of a persisted plan exercise,
// exactly as stored. Any of them may be missing.
type PrescribedFields struct {
	Sets    *int
	Reps    *int
	RepsMin *int
	RepsMax *int
}

// ExerciseRule is the resolved, always-usable set/reps rule for one exercise.
type ExerciseRule struct {
	EffectiveSetCount int  `json:"effective_set_count"`
	EffectiveRepsMin  int  `json:"effective_reps_min"`
	EffectiveRepsMax  int  `json:"effective_reps_max"`
	IsRepsFallback    bool `json:"is_reps_fallback"`
}

// FlexValue holds a JSON scalar submitted by the sets form. Clients send either
// strings or numbers; Text keeps the literal and Number records which one it was.
type FlexValue struct {
	Text   string
	Number bool
}

// UnmarshalJSON accepts strings, numbers and null.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = FlexValue{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FlexValue{Text: s}
		return nil
	}
	*v = FlexValue{Text: string(data), Number: len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9'))}
	return nil
}

// MarshalJSON writes numbers back as numbers and everything else as strings.
func (v FlexValue) MarshalJSON() ([]byte, error) {
	if v.Number {
		return []byte(v.Text), nil
	}
	return json.Marshal(v.Text)
}

// Str builds a string-typed FlexValue.
func Str(s string) FlexValue { return FlexValue{Text: s} }

// RawSetRow is one unvalidated row of the sets payload.
type RawSetRow struct {
	PlanExerciseID FlexValue `json:"planExerciseId"`
	SetNumber      FlexValue `json:"setNumber"`
	Reps           FlexValue `json:"reps"`
	Weight         FlexValue `json:"weight"`
}

// SetKey is the composite identity of a session set within one session.
type SetKey struct {
	PlanExerciseID string
	SetNumber      int
}

// SessionSetInput is a validated, normalized set ready to be upserted.
type SessionSetInput struct {
	PlanExerciseID string  `json:"plan_exercise_id"`
	SetNumber      int     `json:"set_number"`
	Reps           int     `json:"reps"`
	Weight         float64 `json:"weight"`
}

// Key returns the set's composite identity.
func (s SessionSetInput) Key() SetKey {
	return SetKey{PlanExerciseID: s.PlanExerciseID, SetNumber: s.SetNumber}
}

// SessionState is the minimal session info needed by write paths.
type SessionState struct {
	SessionID uuid.UUID
	Status    SessionStatus
	PlanDayID uuid.UUID
	UserID    int
}

// DayOption is a selectable plan day for starting a new session.
type DayOption struct {
	PlanDayID  uuid.UUID `json:"plan_day_id"`
	WeekNumber int       `json:"week_number"`
	DayLabel   string    `json:"day_label"`
	DayKey     DayKey    `json:"day_key"`
	SortOrder  int       `json:"sort_order"`
}

// WorkoutNewContext lists the active plan's days for the new-session form.
type WorkoutNewContext struct {
	PlanID     uuid.UUID   `json:"plan_id"`
	PlanName   string      `json:"plan_name"`
	DayOptions []DayOption `json:"day_options"`
}

// SessionSet is a persisted set.
type SessionSet struct {
	ID             uuid.UUID `json:"id"`
	PlanExerciseID uuid.UUID `json:"plan_exercise_id"`
	SetNumber      int       `json:"set_number"`
	Reps           int       `json:"reps"`
	Weight         float64   `json:"weight"`
}

// SessionExercise is a plan exercise annotated with its effective rule and
// the sets recorded so far.
type SessionExercise struct {
	PlanExercise
	ExerciseRule
	Sets []SessionSet `json:"sets"`
}

// WorkoutSession is the detail read model of a session.
type WorkoutSession struct {
	ID          uuid.UUID         `json:"id"`
	Status      SessionStatus     `json:"status"`
	SessionDate string            `json:"session_date"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at"`
	PlanDayID   uuid.UUID         `json:"plan_day_id"`
	WeekNumber  int               `json:"week_number"`
	DayLabel    string            `json:"day_label"`
	PlanName    string            `json:"plan_name"`
	Exercises   []SessionExercise `json:"exercises"`
}

// HistoryStatus filters the history list.
type HistoryStatus string

const (
	HistoryCompleted  HistoryStatus = "completed"
	HistoryInProgress HistoryStatus = "in_progress"
	HistoryAll        HistoryStatus = "all"
)

// HistoryQuery selects a page of sessions. From/To are inclusive YYYY-MM-DD dates.
type HistoryQuery struct {
	Page     int
	PageSize int
	From     string
	To       string
	Status   HistoryStatus
}

type HistoryItem struct {
	ID             uuid.UUID     `json:"id"`
	SessionDate    string        `json:"session_date"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at"`
	Status         SessionStatus `json:"status"`
	WeekNumber     int           `json:"week_number"`
	DayLabel       string        `json:"day_label"`
	PlanName       string        `json:"plan_name"`
	SetsCount      int           `json:"sets_count"`
	ExercisesCount int           `json:"exercises_count"`
	TotalVolume    float64       `json:"total_volume"`
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
	Status     HistoryStatus `json:"status"`
	From       string        `json:"from,omitempty"`
	To         string        `json:"to,omitempty"`
}
