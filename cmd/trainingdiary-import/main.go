package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/meltforce/trainingdiary/internal/config"
	"github.com/meltforce/trainingdiary/internal/importflow"
	"github.com/meltforce/trainingdiary/internal/planimport"
	"github.com/meltforce/trainingdiary/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "path to a .xlsx or .csv plan (required)")
	save := flag.Bool("save", false, "store the plan as the user's active plan")
	userID := flag.Int("user", 1, "user id the plan is saved for")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: trainingdiary-import -file plan.xlsx [-save -config config.yaml -user 1]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Error("failed to read plan file", "path", *filePath, "error", err)
		os.Exit(1)
	}

	filename := planimport.SanitizeFilename(filepath.Base(*filePath))
	if err := importflow.ValidateUpload(filename, int64(len(data))); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	started := time.Now()
	plan, err := planimport.Parse(data, filename)
	if err != nil {
		// Import errors are user-facing text; anything else is a decoding failure.
		if planimport.IsImportError(err) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			log.Error("parse failed", "error", err)
		}
		os.Exit(1)
	}
	preview := planimport.BuildPreview(plan)

	out, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		log.Error("encoding preview", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !*save {
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	planID, err := db.SaveImportedPlan(ctx, *userID, plan, filename, nil)
	if err != nil {
		log.Error("saving plan failed", "error", err)
		os.Exit(1)
	}

	ms := int(time.Since(started).Milliseconds())
	if _, err := db.InsertImportLog(ctx, storage.ImportLog{
		UserID:     *userID,
		Source:     "cli",
		Status:     "success",
		Filename:   filename,
		Weeks:      preview.TotalWeeks,
		Days:       preview.TotalDays,
		Exercises:  preview.TotalExercises,
		PlanID:     &planID,
		DurationMs: &ms,
	}); err != nil {
		log.Warn("writing import log", "error", err)
	}

	log.Info("plan saved", "plan_id", planID, "user_id", *userID,
		"weeks", preview.TotalWeeks, "days", preview.TotalDays, "exercises", preview.TotalExercises)
}
