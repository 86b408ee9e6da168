package planimport

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Import guardrails. They bound the cost of parsing untrusted files and are
// not configurable per request.
const (
	MaxFileSizeBytes   = 5 * 1024 * 1024
	MaxSheets          = 8
	MaxRowsPerSheet    = 3000
	MaxColumnsPerRow   = 64
	MaxExercisesTotal  = 2000
	MaxParseDuration   = 2500 * time.Millisecond
	MaxWeekNumber      = 52
	DeadlineCheckEvery = 50
)

const (
	defaultPlanName = "План тренировок"
	defaultFilename = "training-plan"
	fileLabel       = "Импортируемый файл"
	maxFilenameLen  = 120
)

// FileKind is the import format derived from a filename.
type FileKind int

const (
	KindNone FileKind = iota
	KindXLSX
	KindCSV
)

func (k FileKind) String() string {
	switch k {
	case KindXLSX:
		return "xlsx"
	case KindCSV:
		return "csv"
	default:
		return "none"
	}
}

var (
	dashReplacer   = strings.NewReplacer("\u2013", "-", "\u2014", "-", "\u2212", "-", "\ufeff", "")
	headerReplacer = strings.NewReplacer(" ", "", "_", "", "х", "×", "x", "×", "*", "×")

	unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	underscoresRe    = regexp.MustCompile(`_+`)
)

// NormalizeText canonicalizes a cell for matching: NFC, no BOM, trimmed,
// lowercased, single spaces and plain hyphens.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = dashReplacer.Replace(norm.NFC.String(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// NormalizeHeader canonicalizes a header cell so that notation variants of the
// same column name compare equal.
func NormalizeHeader(s string) string {
	return headerReplacer.Replace(NormalizeText(s))
}

// SanitizeFilename makes an uploaded filename safe to use as a storage path segment.
func SanitizeFilename(name string) string {
	s := unsafeFilenameRe.ReplaceAllString(name, "_")
	s = underscoresRe.ReplaceAllString(s, "_")
	if len(s) > maxFilenameLen {
		s = s[:maxFilenameLen]
	}
	if s == "" {
		return defaultFilename
	}
	return s
}

// DetectFileKind picks the import format from the filename extension.
func DetectFileKind(filename string) FileKind {
	lower := strings.ToLower(strings.TrimSpace(filename))
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return KindXLSX
	case strings.HasSuffix(lower, ".csv"):
		return KindCSV
	default:
		return KindNone
	}
}

// PlanNameFromFilename derives the plan name from the uploaded filename.
func PlanNameFromFilename(filename string) string {
	name := strings.TrimSpace(filename)
	lower := strings.ToLower(name)
	for _, ext := range []string{".xlsx", ".csv"} {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultPlanName
	}
	return name
}

// CheckFileSize rejects empty files and files over MaxFileSizeBytes.
func CheckFileSize(size int64, label string) error {
	if size <= 0 {
		return &ImportError{Code: CodeEmptyFile, Source: label}
	}
	if size > MaxFileSizeBytes {
		return &ImportError{Code: CodeFileTooLarge, Source: label, Count: int(size), Limit: MaxFileSizeBytes}
	}
	return nil
}
