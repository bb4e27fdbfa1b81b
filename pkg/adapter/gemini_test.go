package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
)

func TestGeminiComplete(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, apiKey)
	gt.NoError(t, err)

	text, err := client.Complete(ctx, "Hello, what is the capital of France?")
	gt.NoError(t, err)
	gt.S(t, text).Contains("Paris")
}
