package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type fakeJobService struct {
	submitErr error
	jobs      map[string]*model.Job
}

func (f *fakeJobService) Submit(ctx context.Context, p service.SubmitJobParams) (*model.Job, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.Job{ID: "job-1", Status: model.JobStatusPending, UserID: p.UserID}, nil
}

func (f *fakeJobService) Get(ctx context.Context, jobID, userID string) (*model.Job, error) {
	if j, ok := f.jobs[jobID]; ok && j.UserID == userID {
		return j, nil
	}
	return nil, repository.ErrJobNotFound
}

func (f *fakeJobService) ListUsage(ctx context.Context, userID string) ([]*model.AIUsage, float64, error) {
	return nil, 0, nil
}

func newTestAIHandler(svc service.JobService) *AIHandler {
	return NewAIHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, "user-1")
	return req.WithContext(ctx)
}

func TestSubmitReturnsAccepted(t *testing.T) {
	h := newTestAIHandler(&fakeJobService{})

	req := authedRequest(http.MethodPost, "/ai/jobs", `{"prompt":"write a haiku"}`)
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp dto.JobSubmitResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.JobID == "" || resp.Status != model.JobStatusPending {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSubmitRejectsMissingPrompt(t *testing.T) {
	h := newTestAIHandler(&fakeJobService{})

	req := authedRequest(http.MethodPost, "/ai/jobs", `{"model":"gpt-4"}`)
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSubmitReturnsServiceUnavailableWhenQueueDown(t *testing.T) {
	h := newTestAIHandler(&fakeJobService{submitErr: fmt.Errorf("enqueue: %w", pgmq.ErrUnavailable)})

	req := authedRequest(http.MethodPost, "/ai/jobs", `{"prompt":"p"}`)
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestGetReturnsJob(t *testing.T) {
	h := newTestAIHandler(&fakeJobService{jobs: map[string]*model.Job{
		"job-1": {ID: "job-1", Status: model.JobStatusCompleted, UserID: "user-1"},
	}})

	req := authedRequest(http.MethodGet, "/ai/jobs/job-1", "")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp dto.JobResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.ID != "job-1" || resp.Status != model.JobStatusCompleted {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetReturnsNotFoundForForeignJob(t *testing.T) {
	h := newTestAIHandler(&fakeJobService{jobs: map[string]*model.Job{
		"job-1": {ID: "job-1", Status: model.JobStatusCompleted, UserID: "someone-else"},
	}})

	req := authedRequest(http.MethodGet, "/ai/jobs/job-1", "")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestSubmitRequiresAuth(t *testing.T) {
	h := newTestAIHandler(&fakeJobService{})

	req := httptest.NewRequest(http.MethodPost, "/ai/jobs", strings.NewReader(`{"prompt":"p"}`))
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
