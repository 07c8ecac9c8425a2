package driven

import (
	"context"

	"github.com/mwalcott/reqtrack/internal/domain/model"
)

// IssueLookup defines the driven port for reading the live state of a linked
// issue from the project's GitHub repository. Enrichment only: the request
// detail view degrades gracefully when no lookup client is configured.
type IssueLookup interface {
	// IssueStatus fetches the current state of issue number in the
	// "owner/repo" repository. Returns (nil, nil) when the issue does not
	// exist or is not visible with the configured credentials.
	IssueStatus(ctx context.Context, repoFullName string, number int) (*model.IssueStatus, error)
}
