package ports

import (
	"context"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// MoodClassifier maps a free-text request ("something for a rainy sunday") to a mood.
type MoodClassifier interface {
	ClassifyMood(ctx context.Context, message string) (domain.Mood, error)
}
