package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/trainingdiary/internal/models"
)

// SaveImportedPlan stores a parsed plan and makes it the user's only active
// plan. Everything happens in one transaction.
func (db *DB) SaveImportedPlan(ctx context.Context, userID int, plan *models.ParsedTrainingPlan, sourceFilename string, sourcePath *string) (uuid.UUID, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE training_plans SET is_active = FALSE WHERE user_id = $1 AND is_active`,
		userID); err != nil {
		return uuid.Nil, fmt.Errorf("deactivating previous plans: %w", err)
	}

	planID := uuid.New()
	if _, err := tx.Exec(ctx,
		`INSERT INTO training_plans (id, user_id, name, source_filename, source_file_path, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)`,
		planID, userID, plan.Name, sourceFilename, sourcePath); err != nil {
		return uuid.Nil, fmt.Errorf("inserting plan: %w", err)
	}

	var weeks, days, exercises [][]any
	for _, w := range plan.Weeks {
		weekID := uuid.New()
		weeks = append(weeks, []any{weekID, userID, planID, w.WeekNumber})
		for _, d := range w.Days {
			dayID := uuid.New()
			days = append(days, []any{dayID, userID, weekID, string(d.DayKey), d.DayLabel, d.SortOrder})
			for _, e := range d.Exercises {
				exercises = append(exercises, []any{
					uuid.New(), userID, dayID, e.SortOrder, e.ExerciseName, e.Intensity,
					e.PrescribedSets, e.PrescribedReps, e.PrescribedRepsMin, e.PrescribedRepsMax, e.RawSetsReps,
				})
			}
		}
	}

	if err := insertRows(ctx, tx, "plan_weeks (id, user_id, plan_id, week_number)", weeks); err != nil {
		return uuid.Nil, fmt.Errorf("inserting plan weeks: %w", err)
	}
	if err := insertRows(ctx, tx, "plan_days (id, user_id, week_id, day_key, day_label, sort_order)", days); err != nil {
		return uuid.Nil, fmt.Errorf("inserting plan days: %w", err)
	}
	if err := insertRows(ctx, tx,
		`plan_exercises (id, user_id, day_id, sort_order, exercise_name, intensity,
		 prescribed_sets, prescribed_reps, prescribed_reps_min, prescribed_reps_max, raw_sets_reps)`,
		exercises); err != nil {
		return uuid.Nil, fmt.Errorf("inserting plan exercises: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing plan: %w", err)
	}
	return planID, nil
}

// maxInsertParams stays under the Postgres limit of 65535 bind parameters.
const maxInsertParams = 60000

// insertRows batch-inserts rows of equal width into table, which includes the
// column list.
func insertRows(ctx context.Context, tx pgx.Tx, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	chunk := maxInsertParams / cols
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		args := make([]any, 0, (end-start)*cols)
		for _, r := range rows[start:end] {
			args = append(args, r...)
		}
		query := "INSERT INTO " + table + " VALUES " + valuesClause(end-start, cols)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePlanSourcePath records where the plan's source file ended up.
func (db *DB) UpdatePlanSourcePath(ctx context.Context, userID int, planID uuid.UUID, path string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE training_plans SET source_file_path = $3 WHERE id = $1 AND user_id = $2`,
		planID, userID, path)
	if err != nil {
		return fmt.Errorf("updating plan source path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetActivePlan returns the user's active plan with its full tree.
func (db *DB) GetActivePlan(ctx context.Context, userID int) (*models.ActivePlan, error) {
	var p models.ActivePlan
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, source_filename, source_file_path, created_at
		 FROM training_plans
		 WHERE user_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID).Scan(&p.ID, &p.Name, &p.SourceFilename, &p.SourceFilePath, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "querying active plan")
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT w.id, w.week_number, d.id, d.day_key, d.day_label, d.sort_order,
		 e.id, e.sort_order, e.exercise_name, e.intensity, e.prescribed_sets, e.prescribed_reps,
		 e.prescribed_reps_min, e.prescribed_reps_max, e.raw_sets_reps
		 FROM plan_weeks w
		 JOIN plan_days d ON d.week_id = w.id
		 JOIN plan_exercises e ON e.day_id = d.id
		 WHERE w.plan_id = $1 AND w.user_id = $2
		 ORDER BY w.week_number, d.sort_order, e.sort_order`,
		p.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying plan tree: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			weekID, dayID uuid.UUID
			weekNumber    int
			day           models.PlanDay
			e             models.PlanExercise
		)
		if err := rows.Scan(&weekID, &weekNumber, &dayID, &day.DayKey, &day.DayLabel, &day.SortOrder,
			&e.ID, &e.SortOrder, &e.ExerciseName, &e.Intensity, &e.PrescribedSets, &e.PrescribedReps,
			&e.PrescribedRepsMin, &e.PrescribedRepsMax, &e.RawSetsReps); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		if n := len(p.Weeks); n == 0 || p.Weeks[n-1].ID != weekID {
			p.Weeks = append(p.Weeks, models.PlanWeek{ID: weekID, WeekNumber: weekNumber})
		}
		w := &p.Weeks[len(p.Weeks)-1]
		if n := len(w.Days); n == 0 || w.Days[n-1].ID != dayID {
			day.ID = dayID
			w.Days = append(w.Days, day)
		}
		d := &w.Days[len(w.Days)-1]
		d.Exercises = append(d.Exercises, e)
	}
	return &p, rows.Err()
}

// GetWorkoutNewContext lists the active plan's days, ordered by week then day.
func (db *DB) GetWorkoutNewContext(ctx context.Context, userID int) (*models.WorkoutNewContext, error) {
	var c models.WorkoutNewContext
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name FROM training_plans
		 WHERE user_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID).Scan(&c.PlanID, &c.PlanName)
	if err != nil {
		return nil, notFound(err, "querying active plan")
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT d.id, w.week_number, d.day_label, d.day_key, d.sort_order
		 FROM plan_days d
		 JOIN plan_weeks w ON w.id = d.week_id
		 WHERE w.plan_id = $1 AND d.user_id = $2
		 ORDER BY w.week_number, d.sort_order`,
		c.PlanID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying plan days: %w", err)
	}
	defer rows.Close()

	c.DayOptions = []models.DayOption{}
	for rows.Next() {
		var o models.DayOption
		if err := rows.Scan(&o.PlanDayID, &o.WeekNumber, &o.DayLabel, &o.DayKey, &o.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning plan day: %w", err)
		}
		c.DayOptions = append(c.DayOptions, o)
	}
	return &c, rows.Err()
}

// VerifyPlanDayInActivePlan reports whether the day belongs to the user's active plan.
func (db *DB) VerifyPlanDayInActivePlan(ctx context.Context, userID int, planDayID uuid.UUID) (bool, error) {
	var ok bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM plan_days d
			JOIN plan_weeks w ON w.id = d.week_id
			JOIN training_plans p ON p.id = w.plan_id
			WHERE d.id = $1 AND d.user_id = $2 AND p.is_active
		)`,
		planDayID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("verifying plan day: %w", err)
	}
	return ok, nil
}

// GetDayExercises returns the exercises of a plan day in plan order.
func (db *DB) GetDayExercises(ctx context.Context, userID int, planDayID uuid.UUID) ([]models.PlanExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, sort_order, exercise_name, intensity, prescribed_sets, prescribed_reps,
		 prescribed_reps_min, prescribed_reps_max, raw_sets_reps
		 FROM plan_exercises
		 WHERE day_id = $1 AND user_id = $2
		 ORDER BY sort_order`,
		planDayID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying day exercises: %w", err)
	}
	defer rows.Close()

	var result []models.PlanExercise
	for rows.Next() {
		var e models.PlanExercise
		if err := rows.Scan(&e.ID, &e.SortOrder, &e.ExerciseName, &e.Intensity, &e.PrescribedSets,
			&e.PrescribedReps, &e.PrescribedRepsMin, &e.PrescribedRepsMax, &e.RawSetsReps); err != nil {
			return nil, fmt.Errorf("scanning day exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetPrescribedFieldsForDay returns the raw prescription of each exercise of
// a plan day keyed by exercise id.
func (db *DB) GetPrescribedFieldsForDay(ctx context.Context, userID int, planDayID uuid.UUID) (map[string]models.PrescribedFields, error) {
	exercises, err := db.GetDayExercises(ctx, userID, planDayID)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]models.PrescribedFields, len(exercises))
	for _, e := range exercises {
		fields[e.ID.String()] = e.Prescribed()
	}
	return fields, nil
}
