package ollama

import (
	"context"
	"os"
	"testing"
)

// TestClient_ClassifyMood_Integration tests against a live Ollama instance.
// This test is skipped unless RUN_AI_TESTS=true is set.
func TestClient_ClassifyMood_Integration(t *testing.T) {
	if os.Getenv("RUN_AI_TESTS") != "true" {
		t.Skip("Skipping AI-dependent test (set RUN_AI_TESTS=true to enable)")
	}

	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = DefaultBaseURL
	}

	client := NewClient(ollamaHost, os.Getenv("OLLAMA_MODEL"), nil)

	tests := []struct {
		name    string
		message string
	}{
		{
			name:    "Upbeat request",
			message: "Songs for a sunny road trip with friends",
		},
		{
			name:    "Low key request",
			message: "Something quiet for a rainy sunday, nothing too upbeat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mood, err := client.ClassifyMood(context.Background(), tt.message)
			if err != nil {
				t.Fatalf("ClassifyMood() error = %v", err)
			}
			if mood == "" {
				t.Error("expected non-empty mood")
			}
			t.Logf("Mood: %s (known=%v)", mood, mood.IsKnown())
		})
	}
}
