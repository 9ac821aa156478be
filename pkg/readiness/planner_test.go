package readiness

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestPlanner(t *testing.T, provider TextProvider) *Planner {
	t.Helper()
	planner, err := NewPlanner(provider, 8, nil)
	if err != nil {
		t.Fatalf("NewPlanner failed: %v", err)
	}
	return planner
}

func TestBuildPlan(t *testing.T) {
	provider := &fakeProvider{
		response: `{"steps":[
			{"id":"upload-will","title":"Upload the will","href":"/estates/e1/documents","kind":"document","severity":"critical"},
			{"id":"chase-rent","title":"Follow up on unpaid rent","href":"/estates/e1/rent","kind":"payment","severity":"warn"}
		]}`,
	}
	planner := newTestPlanner(t, provider)

	signals := []Signal{
		{Key: SignalNoWill, Status: StatusMissing, Detail: "No will on file"},
		{Key: SignalUnpaidRent, Status: StatusAtRisk, Count: 2, Detail: "2 unpaid rent payments"},
	}

	plan, err := planner.BuildPlan(context.Background(), "e1", signals)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(plan.Steps))
	}
	if plan.Steps[0].ID != "upload-will" || plan.Steps[0].Severity != SeverityCritical {
		t.Errorf("unexpected first step: %+v", plan.Steps[0])
	}
	if len(plan.Signals) != 2 {
		t.Errorf("signal count = %d, want 2", len(plan.Signals))
	}
}

func TestBuildPlanNoSignalsSkipsProvider(t *testing.T) {
	provider := &fakeProvider{response: `{"steps":[]}`}
	planner := newTestPlanner(t, provider)

	plan, err := planner.BuildPlan(context.Background(), "e1", nil)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if len(plan.Steps) != 0 {
		t.Errorf("step count = %d, want 0", len(plan.Steps))
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 for a clean estate", provider.calls)
	}
}

func TestBuildPlanCachesUnchangedSignals(t *testing.T) {
	provider := &fakeProvider{
		response: `{"steps":[{"id":"a","title":"A","href":"/x","kind":"general","severity":"info"}]}`,
	}
	planner := newTestPlanner(t, provider)

	signals := []Signal{{Key: SignalNoWill, Status: StatusMissing, Detail: "No will on file"}}

	if _, err := planner.BuildPlan(context.Background(), "e1", signals); err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if _, err := planner.BuildPlan(context.Background(), "e1", signals); err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 with unchanged signals", provider.calls)
	}

	// Changed signal set misses the cache
	changed := []Signal{{Key: SignalNoWill, Status: StatusMissing, Detail: "No will on file"},
		{Key: SignalOverdueTasks, Status: StatusAtRisk, Count: 1, Detail: "1 tasks past their due date"}}
	if _, err := planner.BuildPlan(context.Background(), "e1", changed); err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 after signal change", provider.calls)
	}

	// Same signals on a different estate also miss
	if _, err := planner.BuildPlan(context.Background(), "e2", signals); err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3 for a different estate", provider.calls)
	}
}

func TestBuildPlanRejectsMalformedResponses(t *testing.T) {
	signals := []Signal{{Key: SignalNoWill, Status: StatusMissing, Detail: "No will on file"}}

	cases := []struct {
		name     string
		response string
	}{
		{"not json", "here are some steps you should take"},
		{"missing steps", `{"plan":"do things"}`},
		{"step without id", `{"steps":[{"title":"A","href":"/x","kind":"general","severity":"info"}]}`},
		{"unknown severity", `{"steps":[{"id":"a","title":"A","href":"/x","kind":"general","severity":"urgent"}]}`},
		{"unknown kind", `{"steps":[{"id":"a","title":"A","href":"/x","kind":"spaceship","severity":"info"}]}`},
		{"extra fields", `{"steps":[],"confidence":0.9}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			planner := newTestPlanner(t, &fakeProvider{response: tc.response})
			if _, err := planner.BuildPlan(context.Background(), "e1", signals); err == nil {
				t.Error("expected rejection, got nil error")
			}
		})
	}
}

func TestBuildPlanProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	planner := newTestPlanner(t, provider)

	signals := []Signal{{Key: SignalNoWill, Status: StatusMissing, Detail: "No will on file"}}
	if _, err := planner.BuildPlan(context.Background(), "e1", signals); err == nil {
		t.Error("expected error, got nil")
	}

	// Failed builds must not be cached
	provider.err = nil
	provider.response = `{"steps":[]}`
	if _, err := planner.BuildPlan(context.Background(), "e1", signals); err != nil {
		t.Fatalf("BuildPlan failed after provider recovered: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}
