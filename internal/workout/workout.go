// Package workout implements the session write paths: starting a session,
// saving its sets and completing it.
package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/sessionsets"
	"github.com/meltforce/trainingdiary/internal/storage"
)

const (
	MsgInvalidPlanDay     = "Выберите корректный день плана."
	MsgInvalidDate        = "Укажите корректную дату тренировки."
	MsgForeignPlanDay     = "Выбранный день не принадлежит активному плану текущего пользователя."
	MsgSessionExists      = "Сессия на выбранную дату и день уже существует."
	MsgInvalidSessionID   = "Некорректный идентификатор сессии."
	MsgEmptyPayload       = "Не переданы данные сетов для сохранения."
	MsgSessionNotFound    = "Сессия не найдена или недоступна."
	MsgSessionReadOnly    = "Сессия уже завершена и доступна только для чтения."
	MsgAlreadyCompleted   = "Сессия уже завершена."
	MsgNoSavedSets        = "Нельзя завершить тренировку без сохранённых сетов."
	MsgCompleteConflicted = "Сессия уже завершена или недоступна."
	msgSetsSaved          = "Сеты сохранены: %d шт."
)

// ActionError is a rejection whose Message is shown to the user.
type ActionError struct {
	Message           string
	ExistingSessionID *uuid.UUID
}

func (e *ActionError) Error() string { return e.Message }

func reject(msg string) error { return &ActionError{Message: msg} }

// IsUserError reports whether err carries a message meant for the user.
func IsUserError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae) || sessionsets.IsValidationError(err)
}

// Store is the persistence the write paths need.
type Store interface {
	VerifyPlanDayInActivePlan(ctx context.Context, userID int, planDayID uuid.UUID) (bool, error)
	CreateWorkoutSession(ctx context.Context, userID int, planDayID uuid.UUID, sessionDate string) (uuid.UUID, error)
	FindSessionByDateAndDay(ctx context.Context, userID int, planDayID uuid.UUID, sessionDate string) (uuid.UUID, error)
	GetSessionStatus(ctx context.Context, userID int, sessionID uuid.UUID) (*models.SessionState, error)
	GetExerciseRulesForDay(ctx context.Context, userID int, planDayID uuid.UUID) (map[string]models.ExerciseRule, error)
	SaveSessionSets(ctx context.Context, userID int, sessionID uuid.UUID, sets []models.SessionSetInput, p sessionsets.PruneInstruction) (int64, int64, error)
	CountSessionSets(ctx context.Context, userID int, sessionID uuid.UUID) (int, error)
	CompleteWorkoutSession(ctx context.Context, userID int, sessionID uuid.UUID) (bool, error)
}

var _ Store = (*storage.DB)(nil)

// SaveResult describes an accepted set submission.
type SaveResult struct {
	Message string `json:"message"`
	Saved   int    `json:"saved"`
	Pruned  int64  `json:"pruned"`
}

// Service runs session actions for a user.
type Service struct {
	store Store
	log   *slog.Logger
}

// New creates a Service.
func New(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	t, err := time.Parse(time.DateOnly, s)
	return err == nil && t.Format(time.DateOnly) == s
}

func parseID(s string) (uuid.UUID, bool) {
	canonical, ok := sessionsets.CanonicalID(s)
	if !ok {
		return uuid.Nil, false
	}
	return uuid.MustParse(canonical), true
}

// CreateSession starts an in-progress session for a day of the active plan.
// When one already exists for that day and date the ActionError carries its id.
func (s *Service) CreateSession(ctx context.Context, userID int, planDayID, sessionDate string) (uuid.UUID, error) {
	dayID, ok := parseID(planDayID)
	if !ok {
		return uuid.Nil, reject(MsgInvalidPlanDay)
	}
	sessionDate = strings.TrimSpace(sessionDate)
	if !ValidDate(sessionDate) {
		return uuid.Nil, reject(MsgInvalidDate)
	}

	belongs, err := s.store.VerifyPlanDayInActivePlan(ctx, userID, dayID)
	if err != nil {
		return uuid.Nil, s.critical("create_session_action", err, "plan_day_id", dayID, "user_id", userID)
	}
	if !belongs {
		return uuid.Nil, reject(MsgForeignPlanDay)
	}

	id, err := s.store.CreateWorkoutSession(ctx, userID, dayID, sessionDate)
	if errors.Is(err, storage.ErrSessionExists) {
		ae := &ActionError{Message: MsgSessionExists}
		if existing, err := s.store.FindSessionByDateAndDay(ctx, userID, dayID, sessionDate); err == nil {
			ae.ExistingSessionID = &existing
		}
		return uuid.Nil, ae
	}
	if err != nil {
		return uuid.Nil, s.critical("create_session_action", err,
			"plan_day_id", dayID, "session_date", sessionDate, "user_id", userID)
	}
	return id, nil
}

// loadOpenSession resolves a session the user may still write to.
func (s *Service) loadOpenSession(ctx context.Context, userID int, sessionID string, completedMsg string) (*models.SessionState, error) {
	id, ok := parseID(sessionID)
	if !ok {
		return nil, reject(MsgInvalidSessionID)
	}
	state, err := s.store.GetSessionStatus(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, reject(MsgSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if state.Status == models.SessionCompleted {
		return nil, reject(completedMsg)
	}
	return state, nil
}

// SaveSets validates a JSON array of set rows and replaces the session's
// sets with them. Sets of the day's exercises not in the submission are
// removed.
func (s *Service) SaveSets(ctx context.Context, userID int, sessionID string, payload []byte) (*SaveResult, error) {
	if _, ok := parseID(sessionID); !ok {
		return nil, reject(MsgInvalidSessionID)
	}
	payload = []byte(strings.TrimSpace(string(payload)))
	if len(payload) == 0 {
		return nil, reject(MsgEmptyPayload)
	}
	if err := sessionsets.CheckPayloadLimits(payload); err != nil {
		return nil, err
	}

	state, err := s.loadOpenSession(ctx, userID, sessionID, MsgSessionReadOnly)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.GetExerciseRulesForDay(ctx, userID, state.PlanDayID)
	if err != nil {
		return nil, fmt.Errorf("loading exercise rules: %w", err)
	}

	rows, err := sessionsets.DecodeRows(payload)
	if err != nil {
		return nil, err
	}
	sets, err := sessionsets.ValidateAndNormalize(rules, rows)
	if err != nil {
		return nil, err
	}

	prune := sessionsets.BuildPrune(rules, sets)
	_, pruned, err := s.store.SaveSessionSets(ctx, userID, state.SessionID, sets, prune)
	if err != nil {
		return nil, s.critical("upsert_session_sets_action", err,
			"session_id", state.SessionID, "sets_count", len(sets))
	}
	return &SaveResult{
		Message: fmt.Sprintf(msgSetsSaved, len(sets)),
		Saved:   len(sets),
		Pruned:  pruned,
	}, nil
}

// CompleteSession marks an in-progress session with at least one saved set
// as completed.
func (s *Service) CompleteSession(ctx context.Context, userID int, sessionID string) error {
	state, err := s.loadOpenSession(ctx, userID, sessionID, MsgAlreadyCompleted)
	if err != nil {
		return err
	}

	n, err := s.store.CountSessionSets(ctx, userID, state.SessionID)
	if err != nil {
		return fmt.Errorf("counting session sets: %w", err)
	}
	if n <= 0 {
		return reject(MsgNoSavedSets)
	}

	done, err := s.store.CompleteWorkoutSession(ctx, userID, state.SessionID)
	if err != nil {
		return s.critical("complete_session_action", err, "session_id", state.SessionID, "user_id", userID)
	}
	if !done {
		return reject(MsgCompleteConflicted)
	}
	return nil
}

func (s *Service) critical(scope string, err error, attrs ...any) error {
	s.log.Error("workout action failed", append([]any{"scope", scope, "error", err}, attrs...)...)
	return fmt.Errorf("%s: %w", scope, err)
}
