package ports

import "github.com/ewilliams-labs/moodgraph/internal/core/domain"

// AnalysisQueue accepts tracks whose features were estimated so their
// previews can be analyzed in the background.
type AnalysisQueue interface {
	Enqueue(snapshot string, t domain.Track)
}
