package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	GetActivePlan(ctx context.Context, userID int) (*models.ActivePlan, error)
	QueryHistory(ctx context.Context, userID int, q models.HistoryQuery) (*models.HistoryPage, error)
	GetSessionDetails(ctx context.Context, userID int, sessionID uuid.UUID) (*models.WorkoutSession, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
