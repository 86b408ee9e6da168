package planimport

import "github.com/meltforce/trainingdiary/internal/models"

// BuildPreview projects a parsed plan to its confirmation view: totals plus the
// display fields of each exercise.
func BuildPreview(plan *models.ParsedTrainingPlan) models.TrainingPlanPreview {
	preview := models.TrainingPlanPreview{
		Name:       plan.Name,
		TotalWeeks: len(plan.Weeks),
		Weeks:      make([]models.PreviewWeek, 0, len(plan.Weeks)),
	}
	for _, w := range plan.Weeks {
		pw := models.PreviewWeek{WeekNumber: w.WeekNumber, Days: make([]models.PreviewDay, 0, len(w.Days))}
		for _, d := range w.Days {
			pd := models.PreviewDay{DayKey: d.DayKey, DayLabel: d.DayLabel, Exercises: make([]models.PreviewExercise, 0, len(d.Exercises))}
			for _, e := range d.Exercises {
				pd.Exercises = append(pd.Exercises, models.PreviewExercise{
					ExerciseName: e.ExerciseName,
					Intensity:    e.Intensity,
					RawSetsReps:  e.RawSetsReps,
				})
			}
			preview.TotalDays++
			preview.TotalExercises += len(d.Exercises)
			pw.Days = append(pw.Days, pd)
		}
		preview.Weeks = append(preview.Weeks, pw)
	}
	return preview
}
