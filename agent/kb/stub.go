package kb

import (
	"context"

	contractx "github.com/raahib/raahib/agent/contract"
)

// Stub is the knowledge base used when no card store is configured. It
// finds nothing, so the knowledge stage always defers to generation.
type Stub struct{}

var _ contractx.KnowledgeBase = Stub{}

func (Stub) Search(ctx context.Context, query string) ([]contractx.KnowledgeHit, error) {
	return nil, nil
}
