package mcp

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/trainingdiary/internal/importflow"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/planimport"
	"github.com/meltforce/trainingdiary/internal/storage"
)

// --- Tool definitions ---

var toolGetActivePlan = mcp.NewTool("get_active_plan",
	mcp.WithDescription("Retrieve the active training plan with its weeks, days and prescribed exercises (sets, reps or rep range, intensity)."),
)

var toolGetSessionHistory = mcp.NewTool("get_session_history",
	mcp.WithDescription("List workout sessions, newest first. Each item has the plan day, status, number of sets and exercises and total volume (reps x weight)."),
	mcp.WithString("status", mcp.Description("Session status filter. Defaults to 'completed'."), mcp.Enum("completed", "in_progress", "all")),
	mcp.WithString("from", mcp.Description("First session date (YYYY-MM-DD).")),
	mcp.WithString("to", mcp.Description("Last session date (YYYY-MM-DD).")),
	mcp.WithNumber("page", mcp.Description("Page number starting at 1.")),
	mcp.WithNumber("page_size", mcp.Description("Items per page, at most 50. Defaults to 12.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Get one workout session with every exercise of its plan day, the resolved input rules and the logged sets."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetImportLogs = mcp.NewTool("get_import_logs",
	mcp.WithDescription("Recent plan import attempts (preview and save) with counts, duration and error messages."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of entries. Defaults to 50.")),
)

var toolPreviewPlanFile = mcp.NewTool("preview_plan_file",
	mcp.WithDescription("Parse a plan file without saving it and return the preview tree with totals, or the import error shown to users."),
	mcp.WithString("filename", mcp.Required(), mcp.Description("File name ending in .xlsx or .csv")),
	mcp.WithString("content_base64", mcp.Required(), mcp.Description("Base64-encoded file content")),
)

// --- Tool handlers ---

func (h *handlers) getActivePlan(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, err := h.ds.GetActivePlan(ctx, UserIDFromContext(ctx))
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("no active plan; import a plan first"), nil
	}
	if err != nil {
		h.log.Error("mcp get_active_plan", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(plan)
}

func (h *handlers) getSessionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := models.HistoryQuery{
		Page:     req.GetInt("page", 1),
		PageSize: req.GetInt("page_size", storage.DefaultHistoryPageSize),
		From:     req.GetString("from", ""),
		To:       req.GetString("to", ""),
		Status:   models.HistoryStatus(req.GetString("status", string(models.HistoryCompleted))),
	}

	page, err := h.ds.QueryHistory(ctx, UserIDFromContext(ctx), q)
	if err != nil {
		h.log.Error("mcp get_session_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(page)
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id: " + err.Error()), nil
	}

	session, err := h.ds.GetSessionDetails(ctx, UserIDFromContext(ctx), id)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("session not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(session)
}

func (h *handlers) getImportLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := h.ds.QueryImportLogs(ctx, UserIDFromContext(ctx), req.GetInt("limit", 50))
	if err != nil {
		h.log.Error("mcp get_import_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(logs)
}

func (h *handlers) previewPlanFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError("filename parameter is required"), nil
	}
	encoded, err := req.RequireString("content_base64")
	if err != nil {
		return mcp.NewToolResultError("content_base64 parameter is required"), nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return mcp.NewToolResultError("invalid base64 content: " + err.Error()), nil
	}

	if err := importflow.ValidateUpload(filename, int64(len(data))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := planimport.Parse(data, planimport.SanitizeFilename(filename))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(planimport.BuildPreview(plan))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
