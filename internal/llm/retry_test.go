package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var verdict = json.RawMessage(`{"passed":true,"score":82}`)

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
}

func offSchema() MockResponse {
	return MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`bad`), Err: errors.New("bad")}}
}

func TestRetryAttempts(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first attempt", []MockResponse{{Content: verdict}}, 1, false},
		{"outage then success", []MockResponse{down(), {Content: verdict}}, 2, false},
		{"rate limit honors retry-after", []MockResponse{
			{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}},
			{Content: verdict},
		}, 2, false},
		{"every attempt fails", []MockResponse{down(), down(), down(), {Content: verdict}}, 3, true},
		{"truncation is final", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, {Content: verdict}}, 1, true},
		{"off-schema retried once", []MockResponse{offSchema(), offSchema(), {Content: verdict}}, 2, true},
		{"off-schema then success", []MockResponse{offSchema(), {Content: verdict}}, 2, false},
		{"rejection is final", []MockResponse{
			{Err: &ErrRejected{Status: 401, Err: errors.New("invalid api key")}},
			{Content: verdict},
		}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			resp, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})

			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(resp.Content) != string(verdict) {
				t.Errorf("content = %s", resp.Content)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetry_KeepsErrorType(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{}`)}})
	_, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T", err)
	}
}

func TestRetry_StopsOnCancellation(t *testing.T) {
	mock := NewMockProvider(down(), down(), MockResponse{Content: verdict})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := WithRetry(mock, retryConfig()).Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetry_ZeroAttemptsMeansOne(t *testing.T) {
	mock := NewMockProvider(down(), MockResponse{Content: verdict})
	if _, err := WithRetry(mock, RetryConfig{}).Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected the single attempt's error")
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
	if WithRetry(mock, RetryConfig{}).ModelID() != "mock" {
		t.Fatal("ModelID should delegate")
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("api error")
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{429, func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) }, "rate limit"},
		{408, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }, "unavailable"},
		{503, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }, "unavailable"},
		{401, func(err error) bool { var e *ErrRejected; return errors.As(err, &e) }, "rejected"},
		{404, func(err error) bool { var e *ErrRejected; return errors.As(err, &e) }, "rejected"},
	}
	for _, tt := range tests {
		err := classifyStatus(tt.status, base)
		if !tt.check(err) {
			t.Errorf("classifyStatus(%d) = %T, want %s", tt.status, err, tt.name)
		}
		if !errors.Is(err, base) {
			t.Errorf("classifyStatus(%d) lost the cause", tt.status)
		}
	}
}
