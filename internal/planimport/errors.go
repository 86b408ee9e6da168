package planimport

import (
	"errors"
	"fmt"
)

// Code identifies what went wrong during an import.
type Code int

const (
	// Format errors.
	CodeUnsupportedFormat Code = iota + 1
	CodeEmptyFile
	CodeFileTooLarge
	CodeUnreadableWorkbook
	CodeNoSheets
	CodeTooManySheets
	CodeTooManyRows
	CodeTooManyColumns
	CodeEmptyCSV
	CodeHeaderNotFound
	CodeTooManyExercises
	CodeDeadlineExceeded

	// Content errors.
	CodeInvalidWeek
	CodeWeekOutOfRange
	CodeInvalidDay
	CodeInvalidSetsReps
	CodeZeroSetsReps
	CodeInvertedRange

	// Ordering errors.
	CodeExerciseBeforeWeek
	CodeExerciseBeforeDay
	CodeMissingExerciseName
	CodeMissingSetsReps

	// Structural errors.
	CodeNoExercises
)

// Category groups codes into the broad classes reported to callers.
type Category string

const (
	CategoryFormat     Category = "format"
	CategoryContent    Category = "content"
	CategoryOrdering   Category = "ordering"
	CategoryStructural Category = "structural"
)

// Category returns the class the code belongs to.
func (c Code) Category() Category {
	switch {
	case c >= CodeUnsupportedFormat && c <= CodeDeadlineExceeded:
		return CategoryFormat
	case c >= CodeInvalidWeek && c <= CodeInvertedRange:
		return CategoryContent
	case c >= CodeExerciseBeforeWeek && c <= CodeMissingSetsReps:
		return CategoryOrdering
	default:
		return CategoryStructural
	}
}

// ImportError is the single business error kind returned by the importer.
// It carries structured fields; the text is produced by a MessageFormatter.
type ImportError struct {
	Code   Code
	Source string // sheet or file label, e.g. `Лист "Plan"` or CSV
	Row    int    // 1-based row within Source, 0 when not row-specific
	Value  string // offending raw cell value
	Count  int
	Limit  int
}

func (e *ImportError) Error() string {
	return e.Message(Messages)
}

// Message renders the error with the given formatter.
func (e *ImportError) Message(f MessageFormatter) string {
	reason := f.Reason(e)
	if e.Row > 0 {
		return f.RowContext(e.Source, e.Row, reason)
	}
	return reason
}

// atRow returns a copy of err with row context attached when err is an
// ImportError that has none yet.
func atRow(err error, source string, row int) error {
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Row > 0 {
		return err
	}
	cp := *ie
	cp.Source = source
	cp.Row = row
	return &cp
}

// IsImportError reports whether err is, or wraps, an *ImportError.
func IsImportError(err error) bool {
	var ie *ImportError
	return errors.As(err, &ie)
}

// MessageFormatter turns structured import errors into user-facing text.
type MessageFormatter interface {
	Reason(e *ImportError) string
	RowContext(source string, row int, reason string) string
}

// Messages is the formatter used by ImportError.Error.
var Messages MessageFormatter = RussianMessages{}

// RussianMessages is the default formatter.
type RussianMessages struct{}

func (RussianMessages) RowContext(source string, row int, reason string) string {
	return fmt.Sprintf("%s, строка %d: %s", source, row, reason)
}

func (RussianMessages) Reason(e *ImportError) string {
	switch e.Code {
	case CodeUnsupportedFormat:
		return "Поддерживаются только форматы .xlsx и .csv."
	case CodeEmptyFile:
		return fmt.Sprintf("%s: файл пустой.", e.Source)
	case CodeFileTooLarge:
		return fmt.Sprintf("%s: файл слишком большой. Максимальный размер: %d MB.", e.Source, MaxFileSizeBytes/(1024*1024))
	case CodeUnreadableWorkbook:
		return "Не удалось прочитать файл Excel. Проверьте, что файл не повреждён."
	case CodeNoSheets:
		return "Файл не содержит листов для импорта."
	case CodeTooManySheets:
		return fmt.Sprintf("Слишком много листов в файле (%d). Максимум: %d.", e.Count, e.Limit)
	case CodeTooManyRows:
		if e.Source == csvLabel {
			return fmt.Sprintf("CSV содержит слишком много строк (%d). Максимум: %d.", e.Count, e.Limit)
		}
		return fmt.Sprintf("%s слишком большой (%d строк). Максимум: %d.", e.Source, e.Count, e.Limit)
	case CodeTooManyColumns:
		return fmt.Sprintf("%s содержит слишком много колонок в строке. Максимум: %d.", e.Source, e.Limit)
	case CodeEmptyCSV:
		return "CSV-файл пустой. Загрузите корректный файл."
	case CodeHeaderNotFound:
		return "Не удалось найти строку заголовков. Ожидаются колонки: неделя, день, упражнение, интенсивность, подходы×повторы."
	case CodeTooManyExercises:
		return fmt.Sprintf("Файл содержит слишком много упражнений (%d). Максимум: %d.", e.Count, e.Limit)
	case CodeDeadlineExceeded:
		return fmt.Sprintf("%s: превышено время обработки файла (%d ms).", e.Source, e.Limit)
	case CodeInvalidWeek:
		return fmt.Sprintf("Не удалось распознать неделю: %q.", e.Value)
	case CodeWeekOutOfRange:
		return fmt.Sprintf("Некорректный номер недели: %q.", e.Value)
	case CodeInvalidDay:
		return fmt.Sprintf("Не удалось распознать день: %q.", e.Value)
	case CodeInvalidSetsReps:
		return fmt.Sprintf("Некорректный формат \"подходы×повторы\": %q. Ожидается формат N×M или N×A-B, например 4×10 или 4×8-12.", e.Value)
	case CodeZeroSetsReps:
		return fmt.Sprintf("Значения подходов и повторов должны быть > 0: %q.", e.Value)
	case CodeInvertedRange:
		return fmt.Sprintf("Некорректный диапазон повторов: %q. Левая граница должна быть <= правой.", e.Value)
	case CodeExerciseBeforeWeek:
		return "упражнение указано раньше, чем неделя."
	case CodeExerciseBeforeDay:
		return "упражнение указано раньше, чем день недели."
	case CodeMissingExerciseName:
		return "заполните название упражнения."
	case CodeMissingSetsReps:
		return "заполните колонку подходы×повторы."
	case CodeNoExercises:
		return "В файле не найдено ни одного упражнения для импорта."
	default:
		return "Ошибка импорта файла."
	}
}

// EnglishMessages renders import errors in English.
type EnglishMessages struct{}

func (EnglishMessages) RowContext(source string, row int, reason string) string {
	return fmt.Sprintf("%s, row %d: %s", source, row, reason)
}

func (EnglishMessages) Reason(e *ImportError) string {
	switch e.Code {
	case CodeUnsupportedFormat:
		return "only .xlsx and .csv files are supported"
	case CodeEmptyFile:
		return fmt.Sprintf("%s: file is empty", e.Source)
	case CodeFileTooLarge:
		return fmt.Sprintf("%s: file is too large, max size is %d MB", e.Source, MaxFileSizeBytes/(1024*1024))
	case CodeUnreadableWorkbook:
		return "workbook could not be read"
	case CodeNoSheets:
		return "workbook has no sheets"
	case CodeTooManySheets:
		return fmt.Sprintf("too many sheets (%d), max %d", e.Count, e.Limit)
	case CodeTooManyRows:
		return fmt.Sprintf("%s has too many rows (%d), max %d", e.Source, e.Count, e.Limit)
	case CodeTooManyColumns:
		return fmt.Sprintf("%s has a row with too many columns, max %d", e.Source, e.Limit)
	case CodeEmptyCSV:
		return "CSV file is empty"
	case CodeHeaderNotFound:
		return "header row not found, expected columns: week, day, exercise, intensity, sets×reps"
	case CodeTooManyExercises:
		return fmt.Sprintf("too many exercises (%d), max %d", e.Count, e.Limit)
	case CodeDeadlineExceeded:
		return fmt.Sprintf("%s: parse time limit exceeded (%d ms)", e.Source, e.Limit)
	case CodeInvalidWeek:
		return fmt.Sprintf("unrecognized week %q", e.Value)
	case CodeWeekOutOfRange:
		return fmt.Sprintf("week number out of range %q", e.Value)
	case CodeInvalidDay:
		return fmt.Sprintf("unrecognized day %q", e.Value)
	case CodeInvalidSetsReps:
		return fmt.Sprintf("malformed sets×reps %q, expected N×M or N×A-B, e.g. 4×10 or 4×8-12", e.Value)
	case CodeZeroSetsReps:
		return fmt.Sprintf("sets and reps must be > 0: %q", e.Value)
	case CodeInvertedRange:
		return fmt.Sprintf("invalid reps range %q, left bound must be ≤ right bound", e.Value)
	case CodeExerciseBeforeWeek:
		return "exercise before week"
	case CodeExerciseBeforeDay:
		return "exercise before day"
	case CodeMissingExerciseName:
		return "exercise name is empty"
	case CodeMissingSetsReps:
		return "sets×reps is empty"
	case CodeNoExercises:
		return "no exercises found"
	default:
		return "import failed"
	}
}
