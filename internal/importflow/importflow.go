// Package importflow runs the two-step plan import: preview parses an upload
// and parks it in temporary storage, save re-reads the parked file and
// persists the plan.
package importflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/filestore"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/planimport"
	"github.com/meltforce/trainingdiary/internal/storage"
)

// User-facing failures outside the parser.
var (
	ErrNoFile          = errors.New("Файл не выбран. Загрузите .xlsx или .csv файл.")
	ErrTempFileMissing = errors.New("Не найден временный файл импорта. Повторите предпросмотр файла.")
	ErrForeignTempFile = errors.New("Недопустимый путь временного файла для текущего пользователя.")
)

const (
	MsgPreviewReady = "Файл успешно разобран. Проверьте структуру и подтвердите импорт."
	MsgSaved        = "План успешно импортирован и сохранён."
	MsgSavedInTemp  = "План сохранён, но исходный файл остался во временной папке Storage."

	tempFileLabel   = "Временный файл импорта"
	uploadFileLabel = "Загруженный файл"
)

// PlanStore persists plans and import logs.
type PlanStore interface {
	SaveImportedPlan(ctx context.Context, userID int, plan *models.ParsedTrainingPlan, sourceFilename string, sourcePath *string) (uuid.UUID, error)
	UpdatePlanSourcePath(ctx context.Context, userID int, planID uuid.UUID, path string) error
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

// FileStore keeps uploaded files.
type FileStore interface {
	Put(userID int, rel string, data []byte) error
	Get(rel string) ([]byte, error)
	Stat(rel string) (*filestore.Entry, error)
	Move(from, to string) error
	Remove(rel string) error
}

var (
	_ PlanStore = (*storage.DB)(nil)
	_ FileStore = (*filestore.Store)(nil)
)

// PreviewResult is returned by a successful preview.
type PreviewResult struct {
	Message        string                     `json:"message"`
	Preview        models.TrainingPlanPreview `json:"preview"`
	TempFilePath   string                     `json:"temp_file_path"`
	SourceFilename string                     `json:"source_filename"`
}

// SaveResult is returned by a successful save.
type SaveResult struct {
	Message    string    `json:"message"`
	PlanID     uuid.UUID `json:"plan_id"`
	SourcePath string    `json:"source_path"`
}

// Service runs imports for a user.
type Service struct {
	plans  PlanStore
	files  FileStore
	parser planimport.Parser
	log    *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// New creates a Service.
func New(plans PlanStore, files FileStore, log *slog.Logger) *Service {
	return &Service{plans: plans, files: files, log: log, now: time.Now, newID: uuid.New}
}

// Preview parses an uploaded file, stores it as a temp file and returns the
// preview. previousTemp, when it belongs to the user, is removed first.
func (s *Service) Preview(ctx context.Context, userID int, filename string, data []byte, previousTemp string) (*PreviewResult, error) {
	started := s.now()
	sourceFilename := planimport.SanitizeFilename(filename)

	if err := ValidateUpload(filename, int64(len(data))); err != nil {
		return nil, s.fail(ctx, "preview", userID, sourceFilename, started, err)
	}
	plan, err := s.parser.Parse(data, sourceFilename)
	if err != nil {
		return nil, s.fail(ctx, "preview", userID, sourceFilename, started, err)
	}
	preview := planimport.BuildPreview(plan)

	if owned(userID, previousTemp) {
		if err := s.files.Remove(previousTemp); err != nil {
			s.log.Warn("removing previous temp file", "path", previousTemp, "error", err)
		}
	}

	tempPath := fmt.Sprintf("%s%s/%d_%s_%s",
		filestore.UserPrefix(userID), filestore.TempDirName, s.now().UnixMilli(), s.newID(), sourceFilename)
	if err := s.files.Put(userID, tempPath, data); err != nil {
		return nil, s.fail(ctx, "preview", userID, sourceFilename, started, fmt.Errorf("storing temp file: %w", err))
	}

	s.record(ctx, storage.ImportLog{
		UserID:    userID,
		Source:    "preview",
		Status:    "success",
		Filename:  sourceFilename,
		Weeks:     preview.TotalWeeks,
		Days:      preview.TotalDays,
		Exercises: preview.TotalExercises,
	}, started)

	return &PreviewResult{
		Message:        MsgPreviewReady,
		Preview:        preview,
		TempFilePath:   tempPath,
		SourceFilename: sourceFilename,
	}, nil
}

// Save re-parses the user's temp file, persists the plan as the active one
// and moves the file next to it. A failed move keeps the temp path as the
// plan's source path.
func (s *Service) Save(ctx context.Context, userID int, tempPath, filename string) (*SaveResult, error) {
	started := s.now()
	tempPath = strings.TrimSpace(tempPath)
	sourceFilename := planimport.SanitizeFilename(strings.TrimSpace(filename))

	if tempPath == "" {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, ErrTempFileMissing)
	}
	if !owned(userID, tempPath) {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, ErrForeignTempFile)
	}

	// The index entry is checked before the file is read.
	entry, err := s.files.Stat(tempPath)
	if errors.Is(err, filestore.ErrNotFound) {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, ErrTempFileMissing)
	}
	if err != nil {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, fmt.Errorf("looking up temp file: %w", err))
	}
	if entry.UserID != userID || !entry.Temp {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, ErrForeignTempFile)
	}
	if err := planimport.CheckFileSize(entry.Size, tempFileLabel); err != nil {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, err)
	}

	data, err := s.files.Get(tempPath)
	if errors.Is(err, filestore.ErrNotFound) {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, ErrTempFileMissing)
	}
	if err != nil {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, fmt.Errorf("reading temp file: %w", err))
	}

	plan, err := s.parser.Parse(data, sourceFilename)
	if err != nil {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, err)
	}
	planID, err := s.plans.SaveImportedPlan(ctx, userID, plan, sourceFilename, nil)
	if err != nil {
		return nil, s.fail(ctx, "save", userID, sourceFilename, started, err)
	}

	finalPath := fmt.Sprintf("%s%s/%d_%s", filestore.UserPrefix(userID), planID, s.now().UnixMilli(), sourceFilename)
	stored, message := finalPath, MsgSaved
	if err := s.files.Move(tempPath, finalPath); err != nil {
		s.log.Warn("moving imported file", "from", tempPath, "to", finalPath, "error", err)
		stored, message = tempPath, MsgSavedInTemp
	}
	if err := s.plans.UpdatePlanSourcePath(ctx, userID, planID, stored); err != nil {
		s.log.Error("recording plan source path", "plan_id", planID, "path", stored, "error", err)
	}

	preview := planimport.BuildPreview(plan)
	s.record(ctx, storage.ImportLog{
		UserID:    userID,
		Source:    "save",
		Status:    "success",
		Filename:  sourceFilename,
		Weeks:     preview.TotalWeeks,
		Days:      preview.TotalDays,
		Exercises: preview.TotalExercises,
		PlanID:    &planID,
	}, started)

	return &SaveResult{Message: message, PlanID: planID, SourcePath: stored}, nil
}

// ValidateUpload checks an uploaded file's name and size before parsing.
func ValidateUpload(filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return ErrNoFile
	}
	if planimport.DetectFileKind(filename) == planimport.KindNone {
		return &planimport.ImportError{Code: planimport.CodeUnsupportedFormat}
	}
	return planimport.CheckFileSize(size, uploadFileLabel)
}

// IsUserError reports whether err carries a message meant for the user.
func IsUserError(err error) bool {
	return planimport.IsImportError(err) ||
		errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrTempFileMissing) ||
		errors.Is(err, ErrForeignTempFile)
}

// owned reports whether rel is a temp path under the user's directory.
func owned(userID int, rel string) bool {
	return strings.HasPrefix(rel, filestore.UserPrefix(userID)) && filestore.IsTemp(rel)
}

func (s *Service) fail(ctx context.Context, intent string, userID int, filename string, started time.Time, err error) error {
	if IsUserError(err) {
		args := []any{"intent", intent, "user_id", userID, "filename", filename, "reason", err}
		var ie *planimport.ImportError
		if errors.As(err, &ie) {
			args = append(args, "category", ie.Code.Category())
		}
		s.log.Info("import rejected", args...)
	} else {
		s.log.Error("import failed", "scope", "import_plan_action", "intent", intent,
			"user_id", userID, "filename", filename, "error", err)
	}
	msg := err.Error()
	s.record(ctx, storage.ImportLog{
		UserID:       userID,
		Source:       intent,
		Status:       "error",
		Filename:     filename,
		ErrorMessage: &msg,
	}, started)
	return err
}

func (s *Service) record(ctx context.Context, entry storage.ImportLog, started time.Time) {
	ms := int(s.now().Sub(started).Milliseconds())
	entry.DurationMs = &ms
	if _, err := s.plans.InsertImportLog(ctx, entry); err != nil {
		s.log.Warn("writing import log", "error", err)
	}
}
