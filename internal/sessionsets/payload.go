package sessionsets

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/meltforce/trainingdiary/internal/models"
)

const (
	MaxPayloadBytes = 64_000
	MaxPayloadRows  = 300
)

var rowMarkerRe = regexp.MustCompile(`"planExerciseId"\s*:`)

// CheckPayloadLimits rejects oversized submissions before they are decoded.
// The row count is estimated from occurrences of the planExerciseId key.
func CheckPayloadLimits(payload []byte) error {
	if len(payload) > MaxPayloadBytes {
		return &ValidationError{Code: CodePayloadTooLarge}
	}
	if len(rowMarkerRe.FindAllIndex(payload, MaxPayloadRows+1)) > MaxPayloadRows {
		return &ValidationError{Code: CodePayloadTooLarge}
	}
	return nil
}

// DecodeRows parses a JSON array of set rows.
func DecodeRows(payload []byte) ([]models.RawSetRow, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ValidationError{Code: CodeMalformedPayload}
	}
	var rows []models.RawSetRow
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, &ValidationError{Code: CodeMalformedPayload}
	}
	return rows, nil
}
