package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/sessionsets"
)

// SaveSessionSets upserts the accepted sets and prunes the stale ones in a
// single transaction.
func (db *DB) SaveSessionSets(ctx context.Context, userID int, sessionID uuid.UUID, sets []models.SessionSetInput, p sessionsets.PruneInstruction) (saved, pruned int64, err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if saved, err = upsertSets(ctx, tx, userID, sessionID, sets); err != nil {
		return 0, 0, err
	}
	if pruned, err = pruneSets(ctx, tx, userID, sessionID, p); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("committing session sets: %w", err)
	}
	return saved, pruned, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// upsertSets writes accepted sets. An existing set with the same (exercise,
// set number) gets its reps and weight replaced.
func upsertSets(ctx context.Context, q execer, userID int, sessionID uuid.UUID, sets []models.SessionSetInput) (int64, error) {
	if len(sets) == 0 {
		return 0, nil
	}

	query := `INSERT INTO session_sets (id, user_id, session_id, plan_exercise_id, set_number, reps, weight) VALUES `
	args := make([]any, 0, len(sets)*7)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		exerciseID, err := uuid.Parse(s.PlanExerciseID)
		if err != nil {
			return 0, fmt.Errorf("parsing exercise id %q: %w", s.PlanExerciseID, err)
		}
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, uuid.New(), userID, sessionID, exerciseID, s.SetNumber, s.Reps, s.Weight)
	}

	query += strings.Join(valueStrings, ",") +
		` ON CONFLICT (session_id, plan_exercise_id, set_number)
		 DO UPDATE SET reps = EXCLUDED.reps, weight = EXCLUDED.weight, updated_at = NOW()`

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upserting session sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// pruneSets deletes the session's sets of the listed exercises whose key is
// not among the allowed ones.
func pruneSets(ctx context.Context, q execer, userID int, sessionID uuid.UUID, p sessionsets.PruneInstruction) (int64, error) {
	if len(p.PlanExerciseIDs) == 0 {
		return 0, nil
	}
	exerciseIDs, err := parseIDs(p.PlanExerciseIDs)
	if err != nil {
		return 0, err
	}
	keys := p.Keys()
	keyIDs := make([]uuid.UUID, len(keys))
	keyNumbers := make([]int32, len(keys))
	for i, k := range keys {
		id, err := uuid.Parse(k.PlanExerciseID)
		if err != nil {
			return 0, fmt.Errorf("parsing exercise id %q: %w", k.PlanExerciseID, err)
		}
		keyIDs[i] = id
		keyNumbers[i] = int32(k.SetNumber)
	}

	tag, err := q.Exec(ctx,
		`DELETE FROM session_sets s
		 WHERE s.session_id = $1 AND s.user_id = $2
		   AND s.plan_exercise_id = ANY($3::uuid[])
		   AND NOT EXISTS (
			SELECT 1 FROM unnest($4::uuid[], $5::int[]) AS k(plan_exercise_id, set_number)
			WHERE k.plan_exercise_id = s.plan_exercise_id AND k.set_number = s.set_number
		   )`,
		sessionID, userID, exerciseIDs, keyIDs, keyNumbers)
	if err != nil {
		return 0, fmt.Errorf("pruning session sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QuerySessionSets returns a session's sets ordered by exercise and set number.
func (db *DB) QuerySessionSets(ctx context.Context, userID int, sessionID uuid.UUID) ([]models.SessionSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.plan_exercise_id, s.set_number, s.reps, s.weight
		 FROM session_sets s
		 JOIN plan_exercises e ON e.id = s.plan_exercise_id
		 WHERE s.session_id = $1 AND s.user_id = $2
		 ORDER BY e.sort_order, s.set_number`,
		sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSet
	for rows.Next() {
		var s models.SessionSet
		if err := rows.Scan(&s.ID, &s.PlanExerciseID, &s.SetNumber, &s.Reps, &s.Weight); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func parseIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(ids))
	for i, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parsing exercise id %q: %w", s, err)
		}
		out[i] = id
	}
	return out, nil
}
