package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/brigade/internal/store"
)

func TestMockProvider_ServesQueueInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"passed":true}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"passed":false}`)},
	)

	first, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first.Content) != `{"passed":true}` || first.Usage.InputTokens != 10 || first.StopReason != "end" {
		t.Fatalf("unexpected first response: %+v", first)
	}

	second, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(second.Content) != `{"passed":false}` {
		t.Fatalf("second content = %s", second.Content)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("calls = %d", mock.CallCount())
	}
}

func TestMockProvider_EmptyQueueIsUnavailable(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T", err)
	}
}

func TestMockProvider_RespondFallback(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"queued":true}`)})
	mock.Respond = func(req Request) MockResponse {
		return MockResponse{Content: json.RawMessage(fmt.Sprintf(`{"echo":%q}`, req.Messages[0].Content))}
	}

	ask := func(s string) string {
		resp, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: s}}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return string(resp.Content)
	}
	if got := ask("a"); got != `{"queued":true}` {
		t.Fatalf("queue should win first, got %s", got)
	}
	if got := ask("corkage"); got != `{"echo":"corkage"}` {
		t.Fatalf("respond fallback = %s", got)
	}
	if mock.LastCall().Messages[0].Content != "corkage" {
		t.Fatalf("LastCall not recorded")
	}
}

func TestMockProvider_ConfiguredError(t *testing.T) {
	want := &ErrRateLimit{RetryAfter: time.Second}
	_, err := NewMockProvider(MockResponse{Err: want}).Generate(context.Background(), Request{})
	if !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}

func TestMockProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	if _, err := mock.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("canceled call should not consume a response")
	}
}

func TestPurposeContext(t *testing.T) {
	if p := PurposeFrom(context.Background()); p != "unknown" {
		t.Fatalf("default purpose = %q", p)
	}
	ctx := WithPurpose(context.Background(), PurposeGrading)
	if p := PurposeFrom(ctx); p != "grading" {
		t.Fatalf("purpose = %q", p)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-test"}}, false},
		{"openai without key", Config{Provider: "openai"}, true},
		{"gemini with key", Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "g-test"}}, false},
		{"openrouter without key", Config{Provider: "openrouter"}, true},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"unknown provider", Config{Provider: "bard"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("BRIGADE_LLM_PROVIDER", "openai")
	t.Setenv("BRIGADE_OPENAI_API_KEY", "sk-env")
	t.Setenv("BRIGADE_LLM_TIMEOUT", "7s")
	t.Setenv("BRIGADE_LLM_MAX_ATTEMPTS", "5")

	cfg := ConfigFromEnv()
	if cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-env" {
		t.Fatalf("provider settings not read: %+v", cfg)
	}
	if cfg.Timeout != 7*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("max attempts = %d", cfg.Retry.MaxAttempts)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("default model lost: %q", cfg.OpenAI.Model)
	}
}

func TestConfigFromEnv_IgnoresBadNumbers(t *testing.T) {
	t.Setenv("BRIGADE_LLM_TIMEOUT", "soon")
	t.Setenv("BRIGADE_LLM_MAX_ATTEMPTS", "-2")

	cfg := ConfigFromEnv()
	if cfg.Timeout != 45*time.Second || cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("bad values should keep defaults: %+v", cfg)
	}
}

func TestDiscoverConfig_Priority(t *testing.T) {
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected no provider without keys")
	}

	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != "gemini" || cfg.Gemini.APIKey != "g-key" {
		t.Fatalf("expected gemini to win over openrouter, got %+v", cfg)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("model = %q", p.ModelID())
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "openai"}, nil, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

type recordedRequests struct {
	mu   sync.Mutex
	rows []store.LLMRequest
	err  error
}

func (r *recordedRequests) AppendLLMRequest(_ context.Context, e store.LLMRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, e)
	return r.err
}

func TestLoggingProvider_RecordsSuccess(t *testing.T) {
	rec := &recordedRequests{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"passed":true,"score":80}`),
		Usage:   Usage{InputTokens: 120, OutputTokens: 18},
	})
	p := WithLogging(mock, "mock", rec, nil)

	ctx := WithPurpose(context.Background(), PurposeGrading)
	_, err := p.Generate(ctx, Request{
		System:   "grade",
		Messages: []Message{{Role: RoleUser, Content: "Describe the 86 procedure."}},
		Schema:   verdictSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.rows) != 1 {
		t.Fatalf("rows = %d", len(rec.rows))
	}
	row := rec.rows[0]
	if !row.Success || row.Purpose != "grading" || row.InputTokens != 120 || row.OutputTokens != 18 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !strings.Contains(row.RequestBody, "[schema: rubric-verdict]") || !strings.Contains(row.RequestBody, "86 procedure") {
		t.Fatalf("request body = %q", row.RequestBody)
	}
	if row.ResponseBody != `{"passed":true,"score":80}` {
		t.Fatalf("response body = %q", row.ResponseBody)
	}
}

func TestLoggingProvider_RecorderFailureDoesNotFailCall(t *testing.T) {
	rec := &recordedRequests{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)}), "mock", rec, nil)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("audit failure leaked: %v", err)
	}
}

func TestLoggingProvider_RecordsFailure(t *testing.T) {
	rec := &recordedRequests{}
	p := WithLogging(NewMockProvider(), "mock", rec, nil)

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.rows) != 1 || rec.rows[0].Success || rec.rows[0].ErrorMessage == "" {
		t.Fatalf("failure not recorded: %+v", rec.rows)
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestTimeoutProvider(t *testing.T) {
	p := WithTimeout(slowProvider{}, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
	if !IsTransient(err) {
		t.Fatal("deadline should be transient")
	}
	if p.ModelID() != "slow" {
		t.Fatalf("model = %q", p.ModelID())
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{&ErrRateLimit{}, true},
		{&ErrProviderUnavailable{}, true},
		{&ErrInvalidResponse{Err: errors.New("bad")}, true},
		{&ErrMaxTokensExceeded{}, true},
		{&ErrRejected{Status: 401}, true},
		{errors.New("template: missing key"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestExchangeBuildsAlternatingTurns(t *testing.T) {
	msgs := Exchange(nil, "material", "Understood.")
	msgs = Exchange(msgs, "I'd tell the kitchen.", "Who else?")
	msgs = append(msgs, Ask("The manager.")...)

	want := []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant, RoleUser}
	if len(msgs) != len(want) {
		t.Fatalf("len = %d, want %d", len(msgs), len(want))
	}
	for i, r := range want {
		if msgs[i].Role != r {
			t.Errorf("msgs[%d].Role = %s, want %s", i, msgs[i].Role, r)
		}
	}
	if msgs[4].Content != "The manager." {
		t.Errorf("last message = %q", msgs[4].Content)
	}
}

func TestResponseDecode(t *testing.T) {
	var v struct {
		Score int `json:"score"`
	}
	if err := (&Response{Content: json.RawMessage(`{"score":82}`)}).Decode(&v); err != nil || v.Score != 82 {
		t.Fatalf("Decode = %v, score %d", err, v.Score)
	}

	err := (&Response{Content: json.RawMessage(`{"score":"high"}`)}).Decode(&v)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}
