package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/gastomail/internal/api/middleware"
	"github.com/dvloznov/gastomail/internal/domain"
	"github.com/dvloznov/gastomail/internal/infra/bigquery"
	"github.com/dvloznov/gastomail/internal/insights"
	"github.com/dvloznov/gastomail/internal/jobs"
)

// MovementsHandler handles movement-related endpoints.
type MovementsHandler struct {
	repo bigquery.MovementRepository
	log  zerolog.Logger
}

// NewMovementsHandler creates a new movements handler.
func NewMovementsHandler(repo bigquery.MovementRepository, log zerolog.Logger) *MovementsHandler {
	return &MovementsHandler{repo: repo, log: log}
}

// ListMovements handles GET /api/movements
func (h *MovementsHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := bigquery.MovementFilter{}

	if status := query.Get("status"); status != "" {
		s := domain.ReviewStatus(status)
		if !s.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = s
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	movements, err := h.repo.ListMovements(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list movements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list movements")
		return
	}

	if movements == nil {
		movements = []domain.Movement{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"movements": movements,
		"count":     len(movements),
	})
}

// UpdateStatus handles PATCH /api/movements/{id}/status
func (h *MovementsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, movementID string) {
	var req struct {
		Status string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := domain.ReviewStatus(req.Status)
	if !status.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	if err := h.repo.UpdateReviewStatus(r.Context(), movementID, status); err != nil {
		h.log.Error().Err(err).Str("movement_id", movementID).Msg("Failed to update review status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update review status")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"movement_id": movementID,
		"status":      string(status),
	})
}

// SyncHandler handles mailbox sync endpoints.
type SyncHandler struct {
	publisher         jobs.Publisher
	defaultQuery      string
	defaultMaxResults int
	log               zerolog.Logger
}

// NewSyncHandler creates a new sync handler. defaultQuery and
// defaultMaxResults fill in requests that leave them unset.
func NewSyncHandler(publisher jobs.Publisher, defaultQuery string, defaultMaxResults int, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		publisher:         publisher,
		defaultQuery:      defaultQuery,
		defaultMaxResults: defaultMaxResults,
		log:               log,
	}
}

// EnqueueSync handles POST /api/sync
func (h *SyncHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}

	// An empty body means "sync with defaults".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Query == "" {
		req.Query = h.defaultQuery
	}
	if req.MaxResults <= 0 {
		req.MaxResults = h.defaultMaxResults
	}

	job := &jobs.SyncMailboxJob{
		Query:      req.Query,
		MaxResults: req.MaxResults,
	}

	if err := h.publisher.PublishSyncMailbox(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("query", job.Query).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Narrator produces free-text commentary for a spending summary.
// Nil disables the narrative portion of the insights endpoint.
type Narrator interface {
	Narrate(ctx context.Context, summary insights.Summary) (string, error)
}

// InsightsHandler handles the insights endpoint.
type InsightsHandler struct {
	repo     bigquery.MovementRepository
	narrator Narrator
	log      zerolog.Logger
}

// NewInsightsHandler creates a new insights handler. narrator may be nil.
func NewInsightsHandler(repo bigquery.MovementRepository, narrator Narrator, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{repo: repo, narrator: narrator, log: log}
}

// GetInsights handles GET /api/insights
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movements, err := h.repo.ListMovements(ctx, bigquery.MovementFilter{})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list movements for insights")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute insights")
		return
	}

	summary := insights.Aggregate(movements, insights.Options{})

	resp := struct {
		insights.Summary
		Narrative string `json:"narrative,omitempty"`
	}{Summary: summary}

	// The narrative rides along when requested; failures degrade to the
	// rule-based summary instead of erroring the whole endpoint.
	if h.narrator != nil && r.URL.Query().Get("narrative") == "true" {
		narrative, err := h.narrator.Narrate(ctx, summary)
		if err != nil {
			h.log.Warn().Err(err).Msg("Narrative generation failed")
		} else {
			resp.Narrative = narrative
		}
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ExtractMovementID pulls the movement ID out of a
// /api/movements/{id}/status path. It returns "" when the path does not
// match.
func ExtractMovementID(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/movements/")
	if trimmed == path {
		return ""
	}
	id, ok := strings.CutSuffix(trimmed, "/status")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
