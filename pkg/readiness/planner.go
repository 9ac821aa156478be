package readiness

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/legatepro/legate/pkg/observability"
)

// TextProvider generates plan text from a rendered prompt. The planner
// treats it as a pure serialization boundary: the provider returns JSON
// and the planner validates it against the step schema.
type TextProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Planner builds readiness plans. Plans for an unchanged signal set are
// served from an LRU cache instead of re-calling the provider.
type Planner struct {
	provider TextProvider
	cache    *lru.Cache[string, *Plan]
	metrics  *observability.Metrics
}

// NewPlanner creates a planner with the given cache size. metrics may
// be nil.
func NewPlanner(provider TextProvider, cacheSize int, metrics *observability.Metrics) (*Planner, error) {
	cache, err := lru.New[string, *Plan](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &Planner{provider: provider, cache: cache, metrics: metrics}, nil
}

// BuildPlan turns the estate's signals into a plan
func (p *Planner) BuildPlan(ctx context.Context, estateID string, signals []Signal) (*Plan, error) {
	key := cacheKey(estateID, signals)
	if plan, ok := p.cache.Get(key); ok {
		if p.metrics != nil {
			p.metrics.PlanCacheHitsTotal.Inc()
		}
		return plan, nil
	}
	if p.metrics != nil {
		p.metrics.PlanCacheMissTotal.Inc()
	}

	start := time.Now()
	plan, err := p.build(ctx, estateID, signals)
	p.record(err, time.Since(start))
	if err != nil {
		return nil, err
	}

	p.cache.Add(key, plan)
	return plan, nil
}

func (p *Planner) build(ctx context.Context, estateID string, signals []Signal) (*Plan, error) {
	plan := &Plan{
		EstateID:    estateID,
		Signals:     signals,
		Steps:       []Step{},
		GeneratedAt: time.Now(),
	}
	if len(signals) == 0 {
		return plan, nil
	}

	raw, err := p.provider.Generate(ctx, renderPrompt(estateID, signals))
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	steps, err := parseSteps(raw)
	if err != nil {
		return nil, err
	}
	plan.Steps = steps
	return plan, nil
}

func (p *Planner) record(err error, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.PlanBuildsTotal.WithLabelValues(status).Inc()
	p.metrics.PlanBuildDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// cacheKey fingerprints the signal set. Signals arrive sorted by key
// from the collector, so equal sets hash equally.
func cacheKey(estateID string, signals []Signal) string {
	h := sha256.New()
	h.Write([]byte(estateID))
	for _, s := range signals {
		fmt.Fprintf(h, "|%s:%s:%d", s.Key, s.Status, s.Count)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func renderPrompt(estateID string, signals []Signal) string {
	var b strings.Builder
	b.WriteString("You are helping an executor administer an estate. ")
	b.WriteString("Given the issues below, respond with JSON only, in the shape ")
	b.WriteString(`{"steps":[{"id":"...","title":"...","href":"...","kind":"...","severity":"..."}]}. `)
	b.WriteString("kind is one of document, payment, task, utility, general. ")
	b.WriteString("severity is one of info, warn, critical.\n\nIssues:\n")
	for _, s := range signals {
		fmt.Fprintf(&b, "- [%s] %s\n", s.Status, s.Detail)
	}
	fmt.Fprintf(&b, "\nLinks should be relative paths under /estates/%s/.\n", estateID)
	return b.String()
}

// parseSteps validates the provider's response against the step schema.
// Anything that does not match is rejected outright.
func parseSteps(raw string) ([]Step, error) {
	var resp struct {
		Steps []Step `json:"steps"`
	}
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("malformed plan response: %w", err)
	}
	if resp.Steps == nil {
		return nil, fmt.Errorf("malformed plan response: missing steps")
	}

	for i, step := range resp.Steps {
		if step.ID == "" || step.Title == "" {
			return nil, fmt.Errorf("malformed plan step %d: id and title are required", i)
		}
		if !validSeverities[step.Severity] {
			return nil, fmt.Errorf("malformed plan step %d: unknown severity %q", i, step.Severity)
		}
		if !validKinds[step.Kind] {
			return nil, fmt.Errorf("malformed plan step %d: unknown kind %q", i, step.Kind)
		}
	}
	return resp.Steps, nil
}

// HTTPTextProvider calls an external text-generation endpoint
type HTTPTextProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPTextProvider creates a provider against the configured endpoint
func NewHTTPTextProvider(endpoint, apiKey, model string, timeout time.Duration) *HTTPTextProvider {
	return &HTTPTextProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Generate posts the prompt and returns the generated text
func (p *HTTPTextProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"model":  p.model,
		"prompt": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call text provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	return out.Text, nil
}
