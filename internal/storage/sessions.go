package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/sessionsets"
)

// CreateWorkoutSession inserts an in-progress session. A second session for
// the same day and date returns ErrSessionExists.
func (db *DB) CreateWorkoutSession(ctx context.Context, userID int, planDayID uuid.UUID, sessionDate string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, plan_day_id, session_date, status)
		 VALUES ($1, $2, $3, $4::date, 'in_progress')`,
		id, userID, planDayID, sessionDate)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrSessionExists
		}
		return uuid.Nil, fmt.Errorf("inserting workout session: %w", err)
	}
	return id, nil
}

// FindSessionByDateAndDay returns the id of the user's session for a day and date.
func (db *DB) FindSessionByDateAndDay(ctx context.Context, userID int, planDayID uuid.UUID, sessionDate string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM workout_sessions
		 WHERE user_id = $1 AND plan_day_id = $2 AND session_date = $3::date`,
		userID, planDayID, sessionDate).Scan(&id)
	if err != nil {
		return uuid.Nil, notFound(err, "querying session by date")
	}
	return id, nil
}

// GetSessionStatus returns the state write paths need, or ErrNotFound when
// the session does not exist or belongs to someone else.
func (db *DB) GetSessionStatus(ctx context.Context, userID int, sessionID uuid.UUID) (*models.SessionState, error) {
	s := models.SessionState{SessionID: sessionID, UserID: userID}
	err := db.Pool.QueryRow(ctx,
		`SELECT status, plan_day_id FROM workout_sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID).Scan(&s.Status, &s.PlanDayID)
	if err != nil {
		return nil, notFound(err, "querying session status")
	}
	return &s, nil
}

// GetExerciseRulesForDay resolves the effective rule of every exercise of a
// plan day, keyed by lowercase exercise id.
func (db *DB) GetExerciseRulesForDay(ctx context.Context, userID int, planDayID uuid.UUID) (map[string]models.ExerciseRule, error) {
	fields, err := db.GetPrescribedFieldsForDay(ctx, userID, planDayID)
	if err != nil {
		return nil, err
	}
	rules := make(map[string]models.ExerciseRule, len(fields))
	for id, f := range fields {
		rules[id] = sessionsets.ResolveRule(f)
	}
	return rules, nil
}

// CountSessionSets returns how many sets are stored for a session.
func (db *DB) CountSessionSets(ctx context.Context, userID int, sessionID uuid.UUID) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_sets WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting session sets: %w", err)
	}
	return n, nil
}

// CompleteWorkoutSession moves an in-progress session to completed. It
// reports false when nothing was updated.
func (db *DB) CompleteWorkoutSession(ctx context.Context, userID int, sessionID uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sessions SET status = 'completed', completed_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status = 'in_progress'`,
		sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("completing session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetSessionDetails returns a session with its day's exercises, their
// effective rules and the recorded sets.
func (db *DB) GetSessionDetails(ctx context.Context, userID int, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	var s models.WorkoutSession
	err := db.Pool.QueryRow(ctx,
		`SELECT s.id, s.status, s.session_date::text, s.created_at, s.completed_at,
		 s.plan_day_id, w.week_number, d.day_label, p.name
		 FROM workout_sessions s
		 JOIN plan_days d ON d.id = s.plan_day_id
		 JOIN plan_weeks w ON w.id = d.week_id
		 JOIN training_plans p ON p.id = w.plan_id
		 WHERE s.id = $1 AND s.user_id = $2`,
		sessionID, userID).Scan(&s.ID, &s.Status, &s.SessionDate, &s.CreatedAt, &s.CompletedAt,
		&s.PlanDayID, &s.WeekNumber, &s.DayLabel, &s.PlanName)
	if err != nil {
		return nil, notFound(err, "querying session")
	}

	exercises, err := db.GetDayExercises(ctx, userID, s.PlanDayID)
	if err != nil {
		return nil, err
	}
	sets, err := db.QuerySessionSets(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	byExercise := make(map[uuid.UUID][]models.SessionSet)
	for _, set := range sets {
		byExercise[set.PlanExerciseID] = append(byExercise[set.PlanExerciseID], set)
	}

	s.Exercises = make([]models.SessionExercise, 0, len(exercises))
	for _, e := range exercises {
		recorded := byExercise[e.ID]
		if recorded == nil {
			recorded = []models.SessionSet{}
		}
		s.Exercises = append(s.Exercises, models.SessionExercise{
			PlanExercise: e,
			ExerciseRule: sessionsets.ResolveRule(e.Prescribed()),
			Sets:         recorded,
		})
	}
	return &s, nil
}
