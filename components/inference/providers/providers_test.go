package providers

import (
	"context"
	"testing"

	"github.com/bububa/meal-agents/components/inference"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	for _, provider := range []inference.Provider{inference.ProviderOpenAI, inference.ProviderAnthropic} {
		clt, closeFn, err := New(ctx, Settings{Provider: provider, APIKey: "key"}, inference.WithModel("m"))
		if err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
		if clt.Provider() != provider {
			t.Errorf("expect %s, got %s", provider, clt.Provider())
		}
		if err := closeFn(); err != nil {
			t.Errorf("%s close: %v", provider, err)
		}
	}
	if _, closeFn, err := New(ctx, Settings{Provider: "cohere"}); err == nil {
		t.Error("expect unsupported provider error")
	} else if closeFn == nil {
		t.Error("expect non-nil close func")
	}
}
