package planimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/meltforce/trainingdiary/internal/models"
)

// Role is the meaning of a column in the header row.
type Role string

const (
	RoleWeek      Role = "week"
	RoleDay       Role = "day"
	RoleExercise  Role = "exercise"
	RoleIntensity Role = "intensity"
	RoleSetsReps  Role = "setsReps"
)

type roleAliases struct {
	role    Role
	aliases []string
}

// headerAliases is checked in order; the first role with a matching alias wins.
// Matching is by substring, so "Неделя (номер)" is still a week column.
var headerAliases = normalizeAliases([]roleAliases{
	{RoleWeek, []string{"неделя", "week"}},
	{RoleDay, []string{"день", "day"}},
	{RoleExercise, []string{"упражнение", "упражнения", "exercise", "exercises"}},
	{RoleIntensity, []string{"интенсив", "интенсивность", "intensity"}},
	{RoleSetsReps, []string{
		"подходы×повторы", "подходыхповторы", "подходыxповторы", "подходы*повторы",
		"подходы×повторения", "подходыхповторения", "подходыxповторения", "подходы*повторения",
		"setsxreps", "sets×reps", "sets*reps",
	}},
})

func normalizeAliases(in []roleAliases) []roleAliases {
	out := make([]roleAliases, len(in))
	for i, ra := range in {
		normalized := make([]string, len(ra.aliases))
		for j, a := range ra.aliases {
			normalized[j] = NormalizeHeader(a)
		}
		out[i] = roleAliases{role: ra.role, aliases: normalized}
	}
	return out
}

// DetectHeaderRole classifies a header cell.
func DetectHeaderRole(cell string) (Role, bool) {
	h := NormalizeHeader(cell)
	if h == "" {
		return "", false
	}
	for _, ra := range headerAliases {
		for _, alias := range ra.aliases {
			if strings.Contains(h, alias) {
				return ra.role, true
			}
		}
	}
	return "", false
}

var weekRe = regexp.MustCompile(`(?:неделя|week)?\s*(\d{1,2})`)

// ParseWeekValue reads a week number from a cell. An empty cell yields ok=false
// and no error.
func ParseWeekValue(cell string) (int, bool, error) {
	text := NormalizeText(cell)
	if text == "" {
		return 0, false, nil
	}
	raw := strings.TrimSpace(cell)
	m := weekRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false, &ImportError{Code: CodeInvalidWeek, Value: raw}
	}
	week, err := strconv.Atoi(m[1])
	if err != nil || week < 1 || week > MaxWeekNumber {
		return 0, false, &ImportError{Code: CodeWeekOutOfRange, Value: raw}
	}
	return week, true, nil
}

type dayAliases struct {
	day     models.Day
	aliases []string
}

var dayTable = []dayAliases{
	{models.Day{Key: models.Monday, Label: "Понедельник", SortOrder: 1}, []string{"понедельник", "пн", "monday", "mon"}},
	{models.Day{Key: models.Tuesday, Label: "Вторник", SortOrder: 2}, []string{"вторник", "вт", "tuesday", "tue"}},
	{models.Day{Key: models.Wednesday, Label: "Среда", SortOrder: 3}, []string{"среда", "ср", "wednesday", "wed"}},
	{models.Day{Key: models.Thursday, Label: "Четверг", SortOrder: 4}, []string{"четверг", "чт", "thursday", "thu"}},
	{models.Day{Key: models.Friday, Label: "Пятница", SortOrder: 5}, []string{"пятница", "пт", "friday", "fri"}},
	{models.Day{Key: models.Saturday, Label: "Суббота", SortOrder: 6}, []string{"суббота", "сб", "saturday", "sat"}},
	{models.Day{Key: models.Sunday, Label: "Воскресенье", SortOrder: 7}, []string{"воскресенье", "вс", "sunday", "sun"}},
}

var dayPunctuation = strings.NewReplacer(".", "", ":", "", ";", "", ",", "")

// ParseDayValue reads a day of week from a cell. The alias must be the whole
// text or be followed by a space, so "Пн: грудь" is Monday.
func ParseDayValue(cell string) (models.Day, bool, error) {
	text := strings.TrimSpace(dayPunctuation.Replace(NormalizeText(cell)))
	if text == "" {
		return models.Day{}, false, nil
	}
	for _, d := range dayTable {
		for _, alias := range d.aliases {
			if text == alias || strings.HasPrefix(text, alias+" ") {
				return d.day, true, nil
			}
		}
	}
	return models.Day{}, false, &ImportError{Code: CodeInvalidDay, Value: strings.TrimSpace(cell)}
}

// SetsReps is a parsed sets×reps prescription.
type SetsReps struct {
	Sets    int
	Reps    *int // nil for a range
	RepsMin int
	RepsMax int
	Raw     string // canonical notation, e.g. 4×8-12
}

var (
	multiplySigns = strings.NewReplacer("х", "×", "Х", "×", "x", "×", "X", "×", "*", "×")
	setsRepsRe    = regexp.MustCompile(`^(\d{1,2})×(\d{1,3})(?:-(\d{1,3}))?$`)
)

// ParseSetsReps parses N×M or N×A-B notation. Any of х, x and * may stand in
// for × and whitespace is ignored.
func ParseSetsReps(cell string) (SetsReps, error) {
	raw := strings.TrimSpace(cell)
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, multiplySigns.Replace(raw))

	m := setsRepsRe.FindStringSubmatch(compact)
	if m == nil {
		return SetsReps{}, &ImportError{Code: CodeInvalidSetsReps, Value: raw}
	}
	sets, _ := strconv.Atoi(m[1])
	low, _ := strconv.Atoi(m[2])
	high := low
	if m[3] != "" {
		high, _ = strconv.Atoi(m[3])
	}
	if sets == 0 || low == 0 || high == 0 {
		return SetsReps{}, &ImportError{Code: CodeZeroSetsReps, Value: raw}
	}
	if low > high {
		return SetsReps{}, &ImportError{Code: CodeInvertedRange, Value: raw}
	}

	sr := SetsReps{Sets: sets, RepsMin: low, RepsMax: high}
	if low == high {
		reps := low
		sr.Reps = &reps
		sr.Raw = fmt.Sprintf("%d×%d", sets, low)
	} else {
		sr.Raw = fmt.Sprintf("%d×%d-%d", sets, low, high)
	}
	return sr, nil
}

// weekMarker reports the week declared by a section-heading cell. Only cells
// mentioning a week are considered; their parse errors are returned.
func weekMarker(cell string) (int, bool, error) {
	text := NormalizeText(cell)
	if text == "" || (!strings.Contains(text, "неделя") && !strings.Contains(text, "week")) {
		return 0, false, nil
	}
	return ParseWeekValue(cell)
}

// dayMarker reports the day declared by a section-heading cell. Cells that do
// not parse as a day are not markers.
func dayMarker(cell string) (models.Day, bool) {
	d, ok, err := ParseDayValue(cell)
	if err != nil {
		return models.Day{}, false
	}
	return d, ok
}
