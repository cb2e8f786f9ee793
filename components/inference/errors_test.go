package inference

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	if Unavailable(ctx, ProviderOpenAI, nil) != nil {
		t.Fatal("expect nil for nil error")
	}
	err := Unavailable(ctx, ProviderGemini, errors.New("connection refused"))
	if !IsUnavailable(err) {
		t.Fatalf("expect UnavailableError, got %T", err)
	}
	if got := err.Error(); got != "gemini inference unavailable: connection refused" {
		t.Errorf("unexpected message %s", got)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	wrapped := fmt.Errorf("post: %w", context.Canceled)
	if err := Unavailable(cancelled, ProviderOpenAI, wrapped); IsUnavailable(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("expect cancellation passed through, got %v", err)
	}
}

func TestUnavailableClientTimeout(t *testing.T) {
	// an http.Client timeout surfaces as a deadline error while the caller
	// context is still live
	timeout := fmt.Errorf("Post \"/chat/completions\": %w (Client.Timeout exceeded while awaiting headers)", context.DeadlineExceeded)
	err := Unavailable(context.Background(), ProviderOpenAI, timeout)
	if !IsUnavailable(err) {
		t.Fatalf("expect UnavailableError, got %T %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expect the deadline error kept in the chain")
	}
}

func TestOptions(t *testing.T) {
	var opts Options
	for _, opt := range []Option{WithModel("default"), WithMaxTokens(512)} {
		opt(&opts)
	}
	if got := opts.Model(&Request{}); got != "default" {
		t.Errorf("expect default model, got %s", got)
	}
	if got := opts.Model(&Request{Model: "override"}); got != "override" {
		t.Errorf("expect override model, got %s", got)
	}
	if got := opts.MaxTokens(nil); got != 512 {
		t.Errorf("expect 512, got %d", got)
	}
}
