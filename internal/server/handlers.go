package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/trainingdiary/internal/importflow"
	"github.com/meltforce/trainingdiary/internal/mcp"
	"github.com/meltforce/trainingdiary/internal/models"
	"github.com/meltforce/trainingdiary/internal/planimport"
	"github.com/meltforce/trainingdiary/internal/sessionsets"
	"github.com/meltforce/trainingdiary/internal/storage"
	"github.com/meltforce/trainingdiary/internal/workout"
)

const (
	msgImportFailed  = "Не удалось обработать файл. Попробуйте ещё раз."
	msgActionFailed  = "Не удалось выполнить действие. Попробуйте ещё раз."
	msgNoActivePlan  = "Активный план не найден. Импортируйте план."
	msgInvalidBody   = "Некорректный запрос."
	maxMultipartBody = planimport.MaxFileSizeBytes + 1<<20
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeImportError(w, planimport.CheckFileSize(tooLarge.Limit, "Загруженный файл"))
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeImportError(w, importflow.ErrNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	result, err := s.imports.Preview(r.Context(), userIDFromContext(r), header.Filename, data, r.FormValue("temp_file_path"))
	if err != nil {
		s.writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type importSaveRequest struct {
	TempFilePath   string `json:"temp_file_path"`
	SourceFilename string `json:"source_filename"`
}

func (s *Server) handleImportSave(w http.ResponseWriter, r *http.Request) {
	var req importSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	result, err := s.imports.Save(r.Context(), userIDFromContext(r), req.TempFilePath, req.SourceFilename)
	if err != nil {
		s.writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeImportError(w http.ResponseWriter, err error) {
	if importflow.IsUserError(err) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgImportFailed})
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.store.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.log.Error("query import logs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgActionFailed})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetActivePlan(r.Context(), userIDFromContext(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgNoActivePlan})
		return
	}
	if err != nil {
		s.log.Error("get active plan", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgActionFailed})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleWorkoutNew(w http.ResponseWriter, r *http.Request) {
	ctx, err := s.store.GetWorkoutNewContext(r.Context(), userIDFromContext(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgNoActivePlan})
		return
	}
	if err != nil {
		s.log.Error("get workout context", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgActionFailed})
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

type createSessionRequest struct {
	PlanDayID   string `json:"plan_day_id"`
	SessionDate string `json:"session_date"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	id, err := s.workouts.CreateSession(r.Context(), userIDFromContext(r), req.PlanDayID, req.SessionDate)
	if err != nil {
		s.writeWorkoutError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id.String()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	session, err := s.store.GetSessionDetails(r.Context(), userIDFromContext(r), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": workout.MsgSessionNotFound})
		return
	}
	if err != nil {
		s.log.Error("get session", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgActionFailed})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSaveSets(w http.ResponseWriter, r *http.Request) {
	// One byte over the limit is enough for the payload check to reject it.
	payload, err := io.ReadAll(io.LimitReader(r.Body, sessionsets.MaxPayloadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	result, err := s.workouts.SaveSets(r.Context(), userIDFromContext(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		s.writeWorkoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.workouts.CompleteSession(r.Context(), userIDFromContext(r), chi.URLParam(r, "id")); err != nil {
		s.writeWorkoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Server) writeWorkoutError(w http.ResponseWriter, err error) {
	var ae *workout.ActionError
	if errors.As(err, &ae) && ae.ExistingSessionID != nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":               ae.Message,
			"existing_session_id": ae.ExistingSessionID.String(),
		})
		return
	}
	if workout.IsUserError(err) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgActionFailed})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := s.store.QueryHistory(r.Context(), userIDFromContext(r), models.HistoryQuery{
		Page:     page,
		PageSize: pageSize,
		From:     q.Get("from"),
		To:       q.Get("to"),
		Status:   models.HistoryStatus(q.Get("status")),
	})
	if err != nil {
		s.log.Error("query history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgActionFailed})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mcp not enabled"})
		return
	}
	s.mcp.ServeHTTP(w, r.WithContext(mcp.WithUserID(r.Context(), userIDFromContext(r))))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
