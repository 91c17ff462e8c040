// Package ollama provides an adapter for the Ollama LLM service.
// It classifies free-text playlist requests into one of the known moods by
// asking a local Ollama instance for a structured JSON answer.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
)

var _ ports.MoodClassifier = (*Client)(nil)

func systemPrompt() string {
	moods := make([]string, len(domain.KnownMoods))
	for i, m := range domain.KnownMoods {
		moods[i] = fmt.Sprintf("%q", m)
	}
	return "You are the Moodgraph mood classifier. Map the user's request to exactly one mood.\n\n" +
		"Allowed moods: " + strings.Join(moods, ", ") + ".\n" +
		"Use \"surprise me\" when the request fits none of the others.\n" +
		"Output: Return ONLY a valid JSON object of the form {\"mood\": \"<mood>\"}. No conversational text."
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        logrus.FieldLogger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

type moodAnswer struct {
	Mood string `json:"mood"`
}

func NewClient(baseURL, model string, log logrus.FieldLogger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.WithField("component", "ollama"),
	}
}

// ClassifyMood returns the mood the model picked for message. Answers outside
// the known moods are returned as-is; they generate like "surprise me".
func (c *Client) ClassifyMood(ctx context.Context, message string) (domain.Mood, error) {
	payload := chatRequest{
		Model:  c.model,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: message},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return "", fmt.Errorf("ollama: empty response")
	}

	var answer moodAnswer
	if err := json.Unmarshal([]byte(parsed.Message.Content), &answer); err != nil {
		return "", fmt.Errorf("ollama: decode mood: %w", err)
	}
	mood := domain.ParseMood(answer.Mood)
	if mood == "" {
		return "", fmt.Errorf("ollama: no mood in response")
	}

	c.log.WithFields(logrus.Fields{
		"mood":     mood,
		"known":    mood.IsKnown(),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("mood classified")
	return mood, nil
}
