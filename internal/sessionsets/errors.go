package sessionsets

import (
	"errors"
	"fmt"
)

// Code identifies a rejected submission.
type Code int

const (
	CodeInvalidExerciseID Code = iota + 1
	CodeForeignExercise
	CodeMissingField
	CodeInvalidSetNumber
	CodeSetNumberExceedsPlan
	CodeInvalidReps
	CodeRepsOutOfRange
	CodeInvalidWeight
	CodeInconsistentReps
	CodeNoSets
	CodeIncompleteExercise
	CodeMalformedPayload
	CodePayloadTooLarge
)

// ValidationError rejects a whole submission. Row is 1-based, 0 for
// batch-level errors.
type ValidationError struct {
	Code       Code
	Row        int
	ExerciseID string
	Expected   int // set count or reps bound, depending on Code
	Actual     int
	Min, Max   int
}

func (e *ValidationError) Error() string {
	reason := e.reason()
	if e.Row > 0 {
		return fmt.Sprintf("Строка %d: %s", e.Row, reason)
	}
	return reason
}

func (e *ValidationError) reason() string {
	switch e.Code {
	case CodeInvalidExerciseID:
		return "некорректный planExerciseId."
	case CodeForeignExercise:
		return "упражнение не принадлежит дню этой сессии."
	case CodeMissingField:
		return "заполните set_number, reps и weight для каждого подхода."
	case CodeInvalidSetNumber:
		return "set_number должен быть целым числом > 0."
	case CodeSetNumberExceedsPlan:
		return fmt.Sprintf("set_number превышает число подходов по плану (%d).", e.Expected)
	case CodeInvalidReps:
		return "reps должен быть целым числом >= 0."
	case CodeRepsOutOfRange:
		return fmt.Sprintf("reps вне допустимого диапазона %d-%d.", e.Min, e.Max)
	case CodeInvalidWeight:
		return "weight должен быть числом >= 0."
	case CodeInconsistentReps:
		return "для упражнения все подходы должны иметь одинаковый reps."
	case CodeNoSets:
		return "Добавьте минимум один корректный сет для сохранения."
	case CodeIncompleteExercise:
		return fmt.Sprintf("Упражнение содержит неполный набор подходов: ожидается %d, получено %d.", e.Expected, e.Actual)
	case CodeMalformedPayload:
		return "Некорректный формат переданных сетов."
	case CodePayloadTooLarge:
		return "Объём данных сетов превышает допустимый лимит. Уменьшите количество записей и попробуйте снова."
	default:
		return "Некорректные данные сетов."
	}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
