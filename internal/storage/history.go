package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meltforce/trainingdiary/internal/models"
)

const (
	DefaultHistoryPageSize = 12
	MaxHistoryPageSize     = 50
)

// NormalizeHistoryQuery fills defaults and clamps paging. Dates that are not
// valid YYYY-MM-DD are dropped.
func NormalizeHistoryQuery(q models.HistoryQuery) models.HistoryQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultHistoryPageSize
	}
	if q.PageSize > MaxHistoryPageSize {
		q.PageSize = MaxHistoryPageSize
	}
	switch q.Status {
	case models.HistoryCompleted, models.HistoryInProgress, models.HistoryAll:
	default:
		q.Status = models.HistoryCompleted
	}
	q.From = validDate(q.From)
	q.To = validDate(q.To)
	if q.From != "" && q.To != "" && q.From > q.To {
		q.From, q.To = q.To, q.From
	}
	return q
}

func validDate(s string) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return ""
	}
	return s
}

// historyFilter builds the WHERE clause for a normalized query.
func historyFilter(userID int, q models.HistoryQuery) (string, []any) {
	conds := []string{"s.user_id = $1"}
	args := []any{userID}
	if q.Status != models.HistoryAll {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if q.From != "" {
		args = append(args, q.From)
		conds = append(conds, fmt.Sprintf("s.session_date >= $%d::date", len(args)))
	}
	if q.To != "" {
		args = append(args, q.To)
		conds = append(conds, fmt.Sprintf("s.session_date <= $%d::date", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// QueryHistory returns one page of the user's sessions, newest first, with
// per-session set count, exercise count and total volume. A page past the
// end is clamped to the last page.
func (db *DB) QueryHistory(ctx context.Context, userID int, q models.HistoryQuery) (*models.HistoryPage, error) {
	q = NormalizeHistoryQuery(q)
	where, args := historyFilter(userID, q)

	page := &models.HistoryPage{
		Items:    []models.HistoryItem{},
		Page:     q.Page,
		PageSize: q.PageSize,
		Status:   q.Status,
		From:     q.From,
		To:       q.To,
	}

	if err := db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM workout_sessions s WHERE "+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting history: %w", err)
	}
	page.TotalPages = max(1, (page.Total+q.PageSize-1)/q.PageSize)
	page.Page = min(q.Page, page.TotalPages)

	limitArg := len(args) + 1
	args = append(args, q.PageSize, (page.Page-1)*q.PageSize)
	rows, err := db.Pool.Query(ctx, fmt.Sprintf(
		`SELECT s.id, s.session_date::text, s.created_at, s.completed_at, s.status,
		 w.week_number, d.day_label, p.name,
		 COUNT(ss.id), COUNT(DISTINCT ss.plan_exercise_id), COALESCE(SUM(ss.reps * ss.weight), 0)
		 FROM workout_sessions s
		 JOIN plan_days d ON d.id = s.plan_day_id
		 JOIN plan_weeks w ON w.id = d.week_id
		 JOIN training_plans p ON p.id = w.plan_id
		 LEFT JOIN session_sets ss ON ss.session_id = s.id
		 WHERE %s
		 GROUP BY s.id, w.week_number, d.day_label, p.name
		 ORDER BY s.session_date DESC, s.created_at DESC
		 LIMIT $%d OFFSET $%d`, where, limitArg, limitArg+1), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.HistoryItem
		if err := rows.Scan(&it.ID, &it.SessionDate, &it.CreatedAt, &it.CompletedAt, &it.Status,
			&it.WeekNumber, &it.DayLabel, &it.PlanName,
			&it.SetsCount, &it.ExercisesCount, &it.TotalVolume); err != nil {
			return nil, fmt.Errorf("scanning history item: %w", err)
		}
		page.Items = append(page.Items, it)
	}
	return page, rows.Err()
}
