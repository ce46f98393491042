package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AIHandler handles generation job endpoints.
type AIHandler struct {
	jobSvc   service.JobService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(jobSvc service.JobService, validate *validator.Validate, logger zerolog.Logger) *AIHandler {
	return &AIHandler{jobSvc: jobSvc, validate: validate, logger: logger}
}

// RegisterRoutes mounts the AI job endpoints.
func (h *AIHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/ai/jobs", authMiddleware(http.HandlerFunc(h.handleJobs)))
	mux.Handle("/ai/jobs/", authMiddleware(http.HandlerFunc(h.handleJob)))
	mux.Handle("/ai/usage", authMiddleware(http.HandlerFunc(h.Usage)))
}

func (h *AIHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Submit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AIHandler) handleJob(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Get(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Submit godoc
// @Summary Submit an asynchronous text generation job
// @Description Persists the job with status pending and enqueues it for the worker. Returns immediately.
// @Tags ai
// @Accept json
// @Produce json
// @Param job body dto.JobSubmitRequest true "Generation request"
// @Success 202 {object} dto.JobSubmitResponse
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "queue unavailable"
// @Router /ai/jobs [post]
func (h *AIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.JobSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	job, err := h.jobSvc.Submit(r.Context(), service.SubmitJobParams{
		Prompt:         req.Prompt,
		Provider:       req.Provider,
		Model:          req.Model,
		UserID:         userID,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		if errors.Is(err, pgmq.ErrUnavailable) {
			http.Error(w, "queue unavailable, retry later", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error().Err(err).Msg("failed to submit job")
		http.Error(w, "failed to submit job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(dto.JobSubmitResponse{JobID: job.ID, Status: job.Status}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// Get godoc
// @Summary Get the status of a generation job
// @Description Returns the job record including status, output, and cost. The job must belong to the caller.
// @Tags ai
// @Produce json
// @Success 200 {object} dto.JobResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "job not found"
// @Router /ai/jobs/{id} [get]
func (h *AIHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/ai/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		http.NotFound(w, r)
		return
	}

	job, err := h.jobSvc.Get(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to fetch job")
		http.Error(w, "failed to fetch job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(jobToDTO(job)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// Usage godoc
// @Summary List the caller's AI usage ledger
// @Produce json
// @Tags ai
// @Success 200 {object} dto.UsageResponse
// @Failure 401 {string} string "unauthorized"
// @Router /ai/usage [get]
func (h *AIHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	records, total, err := h.jobSvc.ListUsage(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list usage")
		http.Error(w, "failed to list usage", http.StatusInternalServerError)
		return
	}

	resp := dto.UsageResponse{Records: make([]dto.UsageRecordDTO, 0, len(records)), TotalCost: total}
	for _, u := range records {
		resp.Records = append(resp.Records, dto.UsageRecordDTO{
			Provider:     u.Provider,
			Model:        u.Model,
			InputTokens:  u.InputTokens,
			OutputTokens: u.OutputTokens,
			TotalTokens:  u.TotalTokens,
			Cost:         u.Cost,
			JobID:        u.JobID,
			CreatedAt:    u.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func jobToDTO(job *model.Job) dto.JobResponse {
	return dto.JobResponse{
		ID:             job.ID,
		Type:           job.Type,
		Status:         job.Status,
		Output:         job.Output,
		Cost:           job.Cost,
		OrganizationID: job.OrganizationID,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}
