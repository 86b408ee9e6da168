package planimport

import (
	"strings"

	"github.com/meltforce/trainingdiary/internal/models"
)

// HeaderMap maps column roles to their index in a row.
type HeaderMap map[Role]int

func (h HeaderMap) has(role Role) bool {
	_, ok := h[role]
	return ok
}

// cell returns the trimmed text in the role's column, or "" when the column
// is absent or the row is shorter.
func (h HeaderMap) cell(cells []string, role Role) string {
	i, ok := h[role]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// detectHeader classifies every cell of a row. The row is a header when it
// has both an exercise and a sets×reps column; a later cell with the same
// role overrides an earlier one.
func detectHeader(cells []string) (HeaderMap, bool) {
	h := HeaderMap{}
	for i, c := range cells {
		if role, ok := DetectHeaderRole(c); ok {
			h[role] = i
		}
	}
	return h, h.has(RoleExercise) && h.has(RoleSetsReps)
}

// findHeader returns the index of the first header row in rows.
func findHeader(rows Grid) (int, HeaderMap, bool) {
	for i, r := range rows {
		if h, ok := detectHeader(r.Cells); ok {
			return i, h, true
		}
	}
	return -1, nil, false
}

// ScanContext is the sticky week/day state carried from row to row.
type ScanContext struct {
	Week int         // 0 until a week is seen
	Day  *models.Day // nil until a day is seen
}

func (c ScanContext) WithWeek(week int) ScanContext {
	c.Week = week
	return c
}

func (c ScanContext) WithDay(day models.Day) ScanContext {
	c.Day = &day
	return c
}

// rowExercise is an exercise row accepted by step.
type rowExercise struct {
	Name      string
	Intensity *string
	SetsReps  SetsReps
}

// step applies one row to the scan context. It returns the updated context and,
// for an exercise row, the parsed exercise. Errors carry no row context.
func step(ctx ScanContext, h HeaderMap, cells []string) (ScanContext, *rowExercise, error) {
	if allEmpty(cells) {
		return ctx, nil, nil
	}

	var err error
	if ctx, err = applyWeek(ctx, h, cells); err != nil {
		return ctx, nil, err
	}
	if ctx, err = applyDay(ctx, h, cells); err != nil {
		return ctx, nil, err
	}

	name := h.cell(cells, RoleExercise)
	intensity := h.cell(cells, RoleIntensity)
	setsReps := h.cell(cells, RoleSetsReps)

	if name == "" && setsReps == "" {
		return ctx, nil, nil
	}

	// Templates often reuse the exercise column for section headings.
	if setsReps == "" {
		week, ok, err := weekMarker(name)
		if err != nil {
			return ctx, nil, err
		}
		if ok {
			return ctx.WithWeek(week), nil, nil
		}
		if day, ok := dayMarker(name); ok {
			return ctx.WithDay(day), nil, nil
		}
	}

	switch {
	case ctx.Week == 0:
		return ctx, nil, &ImportError{Code: CodeExerciseBeforeWeek}
	case ctx.Day == nil:
		return ctx, nil, &ImportError{Code: CodeExerciseBeforeDay}
	case name == "":
		return ctx, nil, &ImportError{Code: CodeMissingExerciseName}
	case setsReps == "":
		return ctx, nil, &ImportError{Code: CodeMissingSetsReps}
	}

	sr, err := ParseSetsReps(setsReps)
	if err != nil {
		return ctx, nil, err
	}
	ex := &rowExercise{Name: name, SetsReps: sr}
	if intensity != "" {
		ex.Intensity = &intensity
	}
	return ctx, ex, nil
}

func applyWeek(ctx ScanContext, h HeaderMap, cells []string) (ScanContext, error) {
	if v := h.cell(cells, RoleWeek); NormalizeText(v) != "" {
		week, ok, err := ParseWeekValue(v)
		if err != nil {
			return ctx, err
		}
		if ok {
			ctx = ctx.WithWeek(week)
		}
		return ctx, nil
	}
	if h.has(RoleWeek) {
		return ctx, nil
	}
	for _, c := range cells {
		week, ok, err := weekMarker(c)
		if err != nil {
			return ctx, err
		}
		if ok {
			return ctx.WithWeek(week), nil
		}
	}
	return ctx, nil
}

func applyDay(ctx ScanContext, h HeaderMap, cells []string) (ScanContext, error) {
	if v := h.cell(cells, RoleDay); NormalizeText(v) != "" {
		day, ok, err := ParseDayValue(v)
		if err != nil {
			return ctx, err
		}
		if ok {
			ctx = ctx.WithDay(day)
		}
		return ctx, nil
	}
	if h.has(RoleDay) {
		return ctx, nil
	}
	for _, c := range cells {
		if day, ok := dayMarker(c); ok {
			return ctx.WithDay(day), nil
		}
	}
	return ctx, nil
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if NormalizeText(c) != "" {
			return false
		}
	}
	return true
}
