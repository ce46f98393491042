package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"app/internal/ai"
	"app/internal/config"
	"app/internal/model"

	"github.com/rs/zerolog"
)

type fakeJobRepo struct {
	pending      map[string]bool
	completed    map[string]json.RawMessage
	failed       map[string]json.RawMessage
	usage        []*model.AIUsage
	completeCost map[string]float64
}

func newFakeJobRepo(pendingIDs ...string) *fakeJobRepo {
	pending := make(map[string]bool)
	for _, id := range pendingIDs {
		pending[id] = true
	}
	return &fakeJobRepo{
		pending:      pending,
		completed:    make(map[string]json.RawMessage),
		failed:       make(map[string]json.RawMessage),
		completeCost: make(map[string]float64),
	}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *model.Job) error {
	f.pending[job.ID] = true
	return nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeJobRepo) ClaimProcessing(ctx context.Context, id string) (bool, error) {
	if !f.pending[id] {
		return false, nil
	}
	delete(f.pending, id)
	return true, nil
}

func (f *fakeJobRepo) Complete(ctx context.Context, id string, output json.RawMessage, cost float64, usage *model.AIUsage) error {
	f.completed[id] = output
	f.completeCost[id] = cost
	f.usage = append(f.usage, usage)
	return nil
}

func (f *fakeJobRepo) Fail(ctx context.Context, id string, output json.RawMessage) error {
	f.failed[id] = output
	return nil
}

type fakeProvider struct {
	name  string
	gen   *ai.Generation
	err   error
	calls int
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func (f *fakeProvider) GenerateText(ctx context.Context, prompt, model string) (*ai.Generation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.gen, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AIQueueName:         "ai_jobs",
		AIRequestTimeoutSec: 5,
		AICostPerToken:      0.0001,
	}
}

func TestProcessCompletesJobAndRecordsUsage(t *testing.T) {
	repo := newFakeJobRepo("job-1")
	provider := &fakeProvider{
		name: "openai",
		gen: &ai.Generation{
			Text:  "hello world",
			Usage: ai.Usage{InputTokens: 10, OutputTokens: 40, TotalTokens: 50},
		},
	}
	w := New(testConfig(), nil, repo, ai.NewRegistry(provider, provider), zerolog.Nop())

	err := w.process(context.Background(), Payload{
		JobID:  "job-1",
		Prompt: "say hello",
		UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("process returned error: %v", err)
	}

	output, ok := repo.completed["job-1"]
	if !ok {
		t.Fatal("expected job to be completed")
	}
	if !strings.Contains(string(output), "hello world") {
		t.Fatalf("expected output to contain generated text, got %s", output)
	}
	if len(repo.usage) != 1 {
		t.Fatalf("expected exactly one usage record, got %d", len(repo.usage))
	}
	u := repo.usage[0]
	if u.TotalTokens != 50 || u.JobID != "job-1" || u.UserID != "user-1" {
		t.Fatalf("unexpected usage record: %+v", u)
	}
	wantCost := 50 * 0.0001
	if u.Cost != wantCost {
		t.Fatalf("expected cost %v, got %v", wantCost, u.Cost)
	}
	if repo.completeCost["job-1"] != wantCost {
		t.Fatalf("expected job cost %v, got %v", wantCost, repo.completeCost["job-1"])
	}
}

func TestProcessMarksJobFailedOnGenerationError(t *testing.T) {
	repo := newFakeJobRepo("job-2")
	provider := &fakeProvider{name: "openai", err: errors.New("model overloaded")}
	w := New(testConfig(), nil, repo, ai.NewRegistry(provider, provider), zerolog.Nop())

	err := w.process(context.Background(), Payload{JobID: "job-2", Prompt: "p", UserID: "u"})
	if err != nil {
		t.Fatalf("generation failure must be terminal, not an infrastructure error: %v", err)
	}

	output, ok := repo.failed["job-2"]
	if !ok {
		t.Fatal("expected job to be marked failed")
	}
	var detail map[string]string
	if err := json.Unmarshal(output, &detail); err != nil {
		t.Fatalf("failed output is not valid JSON: %v", err)
	}
	if detail["error"] != "model overloaded" {
		t.Fatalf("expected error detail in output, got %+v", detail)
	}
	if len(repo.usage) != 0 {
		t.Fatalf("no usage must be recorded for a failed job, got %d records", len(repo.usage))
	}
	if len(repo.completed) != 0 {
		t.Fatal("failed job must not be completed")
	}
}

func TestProcessSkipsJobThatIsNotPending(t *testing.T) {
	repo := newFakeJobRepo() // no pending jobs: redelivery of a finished job
	provider := &fakeProvider{name: "openai", gen: &ai.Generation{Text: "x"}}
	w := New(testConfig(), nil, repo, ai.NewRegistry(provider, provider), zerolog.Nop())

	err := w.process(context.Background(), Payload{JobID: "job-3", Prompt: "p", UserID: "u"})
	if err != nil {
		t.Fatalf("redelivery of a claimed job must be a no-op: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for an unclaimed job, got %d calls", provider.calls)
	}
	if len(repo.completed) != 0 || len(repo.failed) != 0 {
		t.Fatal("unclaimed job must not change state")
	}
}

func TestProcessUsesRequestedProviderAndModel(t *testing.T) {
	repo := newFakeJobRepo("job-4")
	fallback := &fakeProvider{name: "google", gen: &ai.Generation{Text: "g"}}
	openai := &fakeProvider{name: "openai", gen: &ai.Generation{Text: "o", Usage: ai.Usage{TotalTokens: 1}}}
	w := New(testConfig(), nil, repo, ai.NewRegistry(fallback, fallback, openai), zerolog.Nop())

	err := w.process(context.Background(), Payload{JobID: "job-4", Prompt: "p", Provider: "openai", Model: "gpt-4o", UserID: "u"})
	if err != nil {
		t.Fatalf("process returned error: %v", err)
	}
	if openai.calls != 1 {
		t.Fatalf("expected requested provider to be called once, got %d", openai.calls)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback provider must not be called, got %d", fallback.calls)
	}
	if repo.usage[0].Model != "gpt-4o" {
		t.Fatalf("expected requested model in usage, got %s", repo.usage[0].Model)
	}
	if repo.usage[0].Provider != "openai" {
		t.Fatalf("expected requested provider in usage, got %s", repo.usage[0].Provider)
	}
}
