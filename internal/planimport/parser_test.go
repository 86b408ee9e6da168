package planimport

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/xuri/excelize/v2"
)

func csvData(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

// buildWorkbook writes sheets (in order) to an in-memory xlsx file.
func buildWorkbook(t *testing.T, sheets []string, rows map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("renaming sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("adding sheet %q: %v", name, err)
		}
		for r, row := range rows[name] {
			if row == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			values := row
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("writing %s!%s: %v", name, cell, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return buf.Bytes()
}

func mustParse(t *testing.T, data []byte, filename string) *models.ParsedTrainingPlan {
	t.Helper()
	plan, err := Parse(data, filename)
	if err != nil {
		t.Fatalf("Parse(%s) error: %v", filename, err)
	}
	return plan
}

// TestParseCSVMarkerRows verifies week/day section rows in a file without
// week and day columns.
func TestParseCSVMarkerRows(t *testing.T) {
	data := csvData(
		"Упражнение;Интенсивность;Подходы×повторы",
		"Неделя 1",
		"Понедельник",
		"Присед;;4×8-12",
	)
	plan := mustParse(t, data, "Весна.csv")

	if plan.Name != "Весна" {
		t.Errorf("Name = %q, want Весна", plan.Name)
	}
	if len(plan.Weeks) != 1 || plan.Weeks[0].WeekNumber != 1 {
		t.Fatalf("weeks = %+v, want one week 1", plan.Weeks)
	}
	days := plan.Weeks[0].Days
	if len(days) != 1 || days[0].DayKey != models.Monday || days[0].DayLabel != "Понедельник" || days[0].SortOrder != 1 {
		t.Fatalf("days = %+v, want Monday", days)
	}
	if len(days[0].Exercises) != 1 {
		t.Fatalf("exercises = %d, want 1", len(days[0].Exercises))
	}
	ex := days[0].Exercises[0]
	if ex.ExerciseName != "Присед" {
		t.Errorf("ExerciseName = %q, want Присед", ex.ExerciseName)
	}
	if ex.PrescribedSets != 4 || ex.PrescribedRepsMin != 8 || ex.PrescribedRepsMax != 12 {
		t.Errorf("prescription = %d×%d-%d, want 4×8-12", ex.PrescribedSets, ex.PrescribedRepsMin, ex.PrescribedRepsMax)
	}
	if ex.PrescribedReps != nil {
		t.Errorf("PrescribedReps = %d, want nil", *ex.PrescribedReps)
	}
	if ex.RawSetsReps != "4×8-12" {
		t.Errorf("RawSetsReps = %q, want 4×8-12", ex.RawSetsReps)
	}
	if ex.Intensity != nil {
		t.Errorf("Intensity = %q, want nil", *ex.Intensity)
	}
	if ex.SortOrder != 1 {
		t.Errorf("SortOrder = %d, want 1", ex.SortOrder)
	}
}

// TestParseCSVColumns verifies explicit week/day columns, sticky context,
// intensity and quoting.
func TestParseCSVColumns(t *testing.T) {
	data := csvData(
		"\ufeffНеделя;День;Упражнение;Интенсивность;Подходы x Повторы",
		"1;Пн;Жим лёжа;70%;4x8",
		";;\"Тяга; верхний блок\";;3×10-12",
		"",
		";Ср;Присед;\"RPE \"\"8\"\"\";5*5",
		"2;Пн;Жим лёжа;75%;4×6",
	)
	plan := mustParse(t, data, "plan.csv")

	if len(plan.Weeks) != 2 {
		t.Fatalf("weeks = %d, want 2", len(plan.Weeks))
	}
	w1 := plan.Weeks[0]
	if w1.WeekNumber != 1 || len(w1.Days) != 2 {
		t.Fatalf("week 1 = %+v", w1)
	}
	mon := w1.Days[0]
	if mon.DayKey != models.Monday || len(mon.Exercises) != 2 {
		t.Fatalf("week 1 day 0 = %+v", mon)
	}
	if got := mon.Exercises[1].ExerciseName; got != "Тяга; верхний блок" {
		t.Errorf("quoted name = %q", got)
	}
	if mon.Exercises[1].SortOrder != 2 {
		t.Errorf("SortOrder = %d, want 2", mon.Exercises[1].SortOrder)
	}
	if in := mon.Exercises[0].Intensity; in == nil || *in != "70%" {
		t.Errorf("Intensity = %v, want 70%%", in)
	}
	wed := w1.Days[1]
	if wed.DayKey != models.Wednesday {
		t.Errorf("week 1 day 1 = %q, want wednesday", wed.DayKey)
	}
	if in := wed.Exercises[0].Intensity; in == nil || *in != `RPE "8"` {
		t.Errorf("escaped intensity = %v", in)
	}
	if r := wed.Exercises[0].PrescribedReps; r == nil || *r != 5 {
		t.Errorf("PrescribedReps = %v, want 5", r)
	}
	if plan.Weeks[1].WeekNumber != 2 || plan.Weeks[1].Days[0].Exercises[0].RawSetsReps != "4×6" {
		t.Errorf("week 2 = %+v", plan.Weeks[1])
	}
}

// TestParseOrdering verifies weeks ascend, days follow the week and exercises
// keep encounter order regardless of file order.
func TestParseOrdering(t *testing.T) {
	data := csvData(
		"Неделя;День;Упражнение;Подходы×повторы",
		"3;Пт;A;3×5",
		"1;Ср;B;3×5",
		"1;Пн;C;3×5",
		"1;Ср;D;3×5",
		"3;Вт;E;3×5",
		"1;Пн;F;3×5",
	)
	plan := mustParse(t, data, "order.csv")

	var got []string
	prevWeek := 0
	for _, w := range plan.Weeks {
		if w.WeekNumber <= prevWeek {
			t.Errorf("week %d after %d", w.WeekNumber, prevWeek)
		}
		prevWeek = w.WeekNumber
		prevDay := 0
		for _, d := range w.Days {
			if d.SortOrder <= prevDay {
				t.Errorf("week %d: day %d after %d", w.WeekNumber, d.SortOrder, prevDay)
			}
			prevDay = d.SortOrder
			for i, e := range d.Exercises {
				if e.SortOrder != i+1 {
					t.Errorf("%s SortOrder = %d, want %d", e.ExerciseName, e.SortOrder, i+1)
				}
				got = append(got, fmt.Sprintf("%d/%s/%s", w.WeekNumber, d.DayKey, e.ExerciseName))
			}
		}
	}
	want := "1/monday/C 1/monday/F 1/wednesday/B 1/wednesday/D 3/tuesday/E 3/friday/A"
	if strings.Join(got, " ") != want {
		t.Errorf("order = %s\nwant    %s", strings.Join(got, " "), want)
	}
}

// TestParseRowErrors verifies row-level failures and their messages.
func TestParseRowErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		code  Code
		msg   string
	}{
		{
			name:  "exercise before week",
			lines: []string{"Упражнение;Подходы×повторы", "Понедельник", "Жим;4×8"},
			code:  CodeExerciseBeforeWeek,
			msg:   "CSV, строка 3: упражнение указано раньше, чем неделя.",
		},
		{
			name:  "exercise before day",
			lines: []string{"Упражнение;Подходы×повторы", "Неделя 1", "Жим;4×8"},
			code:  CodeExerciseBeforeDay,
			msg:   "CSV, строка 3: упражнение указано раньше, чем день недели.",
		},
		{
			name:  "missing exercise name",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;;4×8"},
			code:  CodeMissingExerciseName,
			msg:   "CSV, строка 2: заполните название упражнения.",
		},
		{
			name:  "missing sets reps",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;Жим;"},
			code:  CodeMissingSetsReps,
			msg:   "CSV, строка 2: заполните колонку подходы×повторы.",
		},
		{
			name:  "malformed notation",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;Жим;four by eight"},
			code:  CodeInvalidSetsReps,
			msg:   `CSV, строка 2: Некорректный формат "подходы×повторы": "four by eight". Ожидается формат N×M или N×A-B, например 4×10 или 4×8-12.`,
		},
		{
			name:  "inverted range",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;Жим;4×12-8"},
			code:  CodeInvertedRange,
			msg:   `CSV, строка 2: Некорректный диапазон повторов: "4×12-8". Левая граница должна быть <= правой.`,
		},
		{
			name:  "bad week column",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "", "первая;Пн;Жим;4×8"},
			code:  CodeInvalidWeek,
			msg:   `CSV, строка 3: Не удалось распознать неделю: "первая".`,
		},
		{
			name:  "week out of range",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "60;Пн;Жим;4×8"},
			code:  CodeWeekOutOfRange,
			msg:   `CSV, строка 2: Некорректный номер недели: "60".`,
		},
		{
			name:  "bad day column",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Funday;Жим;4×8"},
			code:  CodeInvalidDay,
			msg:   `CSV, строка 2: Не удалось распознать день: "Funday".`,
		},
		{
			name:  "header not found",
			lines: []string{"Неделя 1;Пн", "Жим;4×8"},
			code:  CodeHeaderNotFound,
			msg:   "Не удалось найти строку заголовков. Ожидаются колонки: неделя, день, упражнение, интенсивность, подходы×повторы.",
		},
		{
			name:  "no exercises",
			lines: []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;;"},
			code:  CodeNoExercises,
			msg:   "В файле не найдено ни одного упражнения для импорта.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(csvData(tt.lines...), "plan.csv")
			if err == nil {
				t.Fatal("Parse error = nil")
			}
			if c := codeOf(t, err); c != tt.code {
				t.Errorf("code = %d, want %d (%v)", c, tt.code, err)
			}
			if err.Error() != tt.msg {
				t.Errorf("message = %q\nwant      %q", err.Error(), tt.msg)
			}
		})
	}
}

// TestParseExerciseColumnMarkers verifies section headings in the exercise
// column only count as markers when sets×reps is empty.
func TestParseExerciseColumnMarkers(t *testing.T) {
	data := csvData(
		"Неделя;День;Упражнение;Подходы×повторы",
		"1;;;",
		";;Вторник;",
		";;Жим;3×8",
		";;Неделя 2;",
		";;Четверг;",
		";;Тяга;3×8",
	)
	plan := mustParse(t, data, "plan.csv")
	if len(plan.Weeks) != 2 {
		t.Fatalf("weeks = %+v", plan.Weeks)
	}
	if d := plan.Weeks[0].Days[0]; d.DayKey != models.Tuesday || d.Exercises[0].ExerciseName != "Жим" {
		t.Errorf("week 1 = %+v", plan.Weeks[0])
	}
	if d := plan.Weeks[1].Days[0]; d.DayKey != models.Thursday || d.Exercises[0].ExerciseName != "Тяга" {
		t.Errorf("week 2 = %+v", plan.Weeks[1])
	}
}

// TestParseUnsupportedFormat verifies dispatch rejects other extensions.
func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("data"), "plan.xls")
	if c := codeOf(t, err); c != CodeUnsupportedFormat {
		t.Errorf("code = %d, want CodeUnsupportedFormat", c)
	}
	if err.Error() != "Поддерживаются только форматы .xlsx и .csv." {
		t.Errorf("message = %q", err.Error())
	}
}

// TestParseCSVGuardrails verifies the file, row and column limits.
func TestParseCSVGuardrails(t *testing.T) {
	tooManyRows := make([]string, MaxRowsPerSheet+1)
	for i := range tooManyRows {
		tooManyRows[i] = "x"
	}

	tests := []struct {
		name string
		data []byte
		code Code
	}{
		{"empty", nil, CodeEmptyFile},
		{"too large", make([]byte, MaxFileSizeBytes+1), CodeFileTooLarge},
		{"blank", []byte("\ufeff\n\n;;\n"), CodeEmptyCSV},
		{"too many rows", csvData(tooManyRows...), CodeTooManyRows},
		{"too many columns", csvData("Упражнение;Подходы×повторы", strings.Repeat("a;", MaxColumnsPerRow)+"a"), CodeTooManyColumns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data, "plan.csv")
			if c := codeOf(t, err); c != tt.code {
				t.Errorf("code = %d, want %d (%v)", c, tt.code, err)
			}
		})
	}
}

// TestParseTooManyExercises verifies the running exercise counter.
func TestParseTooManyExercises(t *testing.T) {
	lines := []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;;"}
	for i := 0; i < MaxExercisesTotal+1; i++ {
		lines = append(lines, fmt.Sprintf(";;E%d;3×5", i))
	}
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Parser{now: func() time.Time { return fixed }}

	_, err := p.Parse(csvData(lines...), "plan.csv")
	if c := codeOf(t, err); c != CodeTooManyExercises {
		t.Fatalf("code = %d, want CodeTooManyExercises (%v)", c, err)
	}
	want := "Файл содержит слишком много упражнений (2001). Максимум: 2000."
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

// TestParseDeadline verifies the periodic parse-duration check.
func TestParseDeadline(t *testing.T) {
	lines := []string{"Неделя;День;Упражнение;Подходы×повторы", "1;Пн;;"}
	for i := 0; i < 80; i++ {
		lines = append(lines, fmt.Sprintf(";;E%d;3×5", i))
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	p := Parser{now: func() time.Time {
		calls++
		if calls <= 2 {
			return start
		}
		return start.Add(MaxParseDuration + time.Millisecond)
	}}

	_, err := p.Parse(csvData(lines...), "plan.csv")
	if c := codeOf(t, err); c != CodeDeadlineExceeded {
		t.Fatalf("code = %d, want CodeDeadlineExceeded (%v)", c, err)
	}
	if err.Error() != "CSV: превышено время обработки файла (2500 ms)." {
		t.Errorf("message = %q", err.Error())
	}
	if calls != 3 {
		t.Errorf("clock calls = %d, want 3 (start, source, row 50)", calls)
	}
}

// TestParseXLSX verifies a multi-sheet workbook: unheaded sheets are skipped,
// numeric cells are read as text and results are sorted.
func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, []string{"Notes", "Plan"}, map[string][][]any{
		"Notes": {{"Комментарий тренера"}, {"Отдых 2 минуты"}},
		"Plan": {
			{"Неделя", "День", "Упражнение", "Интенсивность", "Подходы×повторы"},
			{2, "Пт", "Жим", "", "4×6"},
			{1, "Ср", "Присед", "", "5*5"},
			nil,
			{"", "Пн", "Тяга", "RPE 8", "3 x 10-12"},
			{"", "", "Подтягивания", "", "3х8"},
		},
	})
	plan := mustParse(t, data, "Блок 1.xlsx")

	if plan.Name != "Блок 1" {
		t.Errorf("Name = %q", plan.Name)
	}
	if len(plan.Weeks) != 2 || plan.Weeks[0].WeekNumber != 1 || plan.Weeks[1].WeekNumber != 2 {
		t.Fatalf("weeks = %+v", plan.Weeks)
	}
	w1 := plan.Weeks[0]
	if len(w1.Days) != 2 || w1.Days[0].DayKey != models.Monday || w1.Days[1].DayKey != models.Wednesday {
		t.Fatalf("week 1 days = %+v", w1.Days)
	}
	mon := w1.Days[0].Exercises
	if len(mon) != 2 || mon[0].ExerciseName != "Тяга" || mon[1].ExerciseName != "Подтягивания" {
		t.Fatalf("monday = %+v", mon)
	}
	if mon[0].RawSetsReps != "3×10-12" || mon[0].Intensity == nil || *mon[0].Intensity != "RPE 8" {
		t.Errorf("Тяга = %+v", mon[0])
	}
	if mon[1].PrescribedReps == nil || *mon[1].PrescribedReps != 8 || mon[1].SortOrder != 2 {
		t.Errorf("Подтягивания = %+v", mon[1])
	}
	if got := plan.Weeks[1].Days[0]; got.DayKey != models.Friday || got.Exercises[0].ExerciseName != "Жим" {
		t.Errorf("week 2 = %+v", got)
	}
}

// TestParseXLSXRowNumbers verifies errors cite the worksheet row.
func TestParseXLSXRowNumbers(t *testing.T) {
	data := buildWorkbook(t, []string{"Plan"}, map[string][][]any{
		"Plan": {
			{"Упражнение", "Подходы×повторы"},
			nil,
			{"Жим", "4×8"},
		},
	})
	_, err := Parse(data, "plan.xlsx")
	if c := codeOf(t, err); c != CodeExerciseBeforeWeek {
		t.Fatalf("code = %d, want CodeExerciseBeforeWeek (%v)", c, err)
	}
	want := `Лист "Plan", строка 3: упражнение указано раньше, чем неделя.`
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

// TestParseXLSXGuardrails verifies workbook-level failures.
func TestParseXLSXGuardrails(t *testing.T) {
	t.Run("unreadable", func(t *testing.T) {
		_, err := Parse([]byte("not a zip archive"), "plan.xlsx")
		if c := codeOf(t, err); c != CodeUnreadableWorkbook {
			t.Errorf("code = %d, want CodeUnreadableWorkbook", c)
		}
	})

	t.Run("too many sheets", func(t *testing.T) {
		var names []string
		for i := 0; i < MaxSheets+1; i++ {
			names = append(names, fmt.Sprintf("S%d", i))
		}
		_, err := Parse(buildWorkbook(t, names, nil), "plan.xlsx")
		if c := codeOf(t, err); c != CodeTooManySheets {
			t.Fatalf("code = %d, want CodeTooManySheets", c)
		}
		if err.Error() != "Слишком много листов в файле (9). Максимум: 8." {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("no headed sheets", func(t *testing.T) {
		data := buildWorkbook(t, []string{"Notes"}, map[string][][]any{"Notes": {{"just text"}}})
		_, err := Parse(data, "plan.xlsx")
		if c := codeOf(t, err); c != CodeNoExercises {
			t.Errorf("code = %d, want CodeNoExercises", c)
		}
	})

	t.Run("too many columns", func(t *testing.T) {
		wide := make([]any, MaxColumnsPerRow+1)
		for i := range wide {
			wide[i] = "x"
		}
		data := buildWorkbook(t, []string{"Wide"}, map[string][][]any{"Wide": {wide}})
		_, err := Parse(data, "plan.xlsx")
		if c := codeOf(t, err); c != CodeTooManyColumns {
			t.Fatalf("code = %d, want CodeTooManyColumns", c)
		}
		if err.Error() != `Лист "Wide" содержит слишком много колонок в строке. Максимум: 64.` {
			t.Errorf("message = %q", err.Error())
		}
	})
}

// TestParseCSVQuotesPerLine verifies quote state ends with the line: an
// unbalanced quote does not swallow the next row, and quotes inside an
// unquoted cell are dropped.
func TestParseCSVQuotesPerLine(t *testing.T) {
	t.Run("unbalanced quote", func(t *testing.T) {
		plan := mustParse(t, csvData(
			"Неделя;День;Упражнение;Интенсивность;Подходы×повторы",
			`1;Пн;Жим;;"4x8`,
			";;Присед;;5x5",
		), "plan.csv")
		ex := plan.Weeks[0].Days[0].Exercises
		if len(ex) != 2 {
			t.Fatalf("exercises = %+v, want 2", ex)
		}
		if ex[0].RawSetsReps != "4×8" || ex[1].ExerciseName != "Присед" {
			t.Errorf("exercises = %+v", ex)
		}
	})

	t.Run("quotes inside a cell", func(t *testing.T) {
		plan := mustParse(t, csvData(
			"Неделя;День;Упражнение;Подходы×повторы",
			`1;Пн;Жим "узкий";3×10`,
		), "plan.csv")
		if got := plan.Weeks[0].Days[0].Exercises[0].ExerciseName; got != "Жим узкий" {
			t.Errorf("name = %q, want %q", got, "Жим узкий")
		}
	})

	t.Run("crlf row numbers", func(t *testing.T) {
		data := []byte("Неделя;День;Упражнение;Подходы×повторы\r\n\r\n1;Пн;Жим;4x\r\n")
		_, err := Parse(data, "plan.csv")
		if c := codeOf(t, err); c != CodeInvalidSetsReps {
			t.Fatalf("code = %d, want CodeInvalidSetsReps (%v)", c, err)
		}
		if !strings.HasPrefix(err.Error(), "CSV, строка 3:") {
			t.Errorf("message = %q, want row 3", err.Error())
		}
	})
}

// TestSplitCSVLine verifies cell splitting on a single line.
func TestSplitCSVLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"a;b;c", []string{"a", "b", "c"}},
		{"", []string{""}},
		{`"a;b";c`, []string{"a;b", "c"}},
		{`"say ""hi""";x`, []string{`say "hi"`, "x"}},
		{`Жим "узкий";3×10`, []string{"Жим узкий", "3×10"}},
		{`"open;quote`, []string{"open;quote"}},
		{"a;;", []string{"a", "", ""}},
	}
	for _, tt := range tests {
		got := splitCSVLine(tt.line)
		if fmt.Sprint(got) != fmt.Sprint(tt.want) || len(got) != len(tt.want) {
			t.Errorf("splitCSVLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func planSheet(week int, exercises int) [][]any {
	rows := [][]any{{"Неделя", "День", "Упражнение", "Подходы×повторы"}}
	for i := 0; i < exercises; i++ {
		if i == 0 {
			rows = append(rows, []any{week, "Пн", fmt.Sprintf("E%d", i), "3×5"})
			continue
		}
		rows = append(rows, []any{"", "", fmt.Sprintf("E%d", i), "3×5"})
	}
	return rows
}

// TestParseXLSXAcrossSheets verifies that the exercise limit counts every
// sheet, that the deadline is checked per sheet and that week/day context
// starts over on each sheet.
func TestParseXLSXAcrossSheets(t *testing.T) {
	t.Run("exercise limit", func(t *testing.T) {
		data := buildWorkbook(t, []string{"A", "B"}, map[string][][]any{
			"A": planSheet(1, 1001),
			"B": planSheet(2, 1000),
		})
		fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		p := Parser{now: func() time.Time { return fixed }}

		_, err := p.Parse(data, "plan.xlsx")
		if c := codeOf(t, err); c != CodeTooManyExercises {
			t.Fatalf("code = %d, want CodeTooManyExercises (%v)", c, err)
		}
		if want := "Файл содержит слишком много упражнений (2001). Максимум: 2000."; err.Error() != want {
			t.Errorf("message = %q, want %q", err.Error(), want)
		}
	})

	t.Run("deadline between sheets", func(t *testing.T) {
		data := buildWorkbook(t, []string{"A", "B"}, map[string][][]any{
			"A": planSheet(1, 3),
			"B": planSheet(2, 3),
		})
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		calls := 0
		p := Parser{now: func() time.Time {
			calls++
			if calls <= 2 {
				return start
			}
			return start.Add(MaxParseDuration + time.Millisecond)
		}}

		_, err := p.Parse(data, "plan.xlsx")
		if c := codeOf(t, err); c != CodeDeadlineExceeded {
			t.Fatalf("code = %d, want CodeDeadlineExceeded (%v)", c, err)
		}
		if !strings.HasPrefix(err.Error(), `Лист "B"`) {
			t.Errorf("message = %q, want it to name sheet B", err.Error())
		}
	})

	t.Run("context resets", func(t *testing.T) {
		data := buildWorkbook(t, []string{"A", "B"}, map[string][][]any{
			"A": planSheet(1, 2),
			"B": {
				{"Неделя", "День", "Упражнение", "Подходы×повторы"},
				{"", "", "Тяга", "3×8"},
			},
		})
		_, err := Parse(data, "plan.xlsx")
		if c := codeOf(t, err); c != CodeExerciseBeforeWeek {
			t.Fatalf("code = %d, want CodeExerciseBeforeWeek (%v)", c, err)
		}
		want := `Лист "B", строка 2: упражнение указано раньше, чем неделя.`
		if err.Error() != want {
			t.Errorf("message = %q, want %q", err.Error(), want)
		}
	})
}

// TestParseXLSXTooManyRows verifies the per-sheet row limit.
func TestParseXLSXTooManyRows(t *testing.T) {
	rows := make([][]any, MaxRowsPerSheet+1)
	for i := range rows {
		rows[i] = []any{"x"}
	}
	data := buildWorkbook(t, []string{"Big"}, map[string][][]any{"Big": rows})

	_, err := Parse(data, "plan.xlsx")
	if c := codeOf(t, err); c != CodeTooManyRows {
		t.Fatalf("code = %d, want CodeTooManyRows (%v)", c, err)
	}
	var ie *ImportError
	if errors.As(err, &ie) && (ie.Source != `Лист "Big"` || ie.Count != MaxRowsPerSheet+1) {
		t.Errorf("error = %+v", ie)
	}
}
