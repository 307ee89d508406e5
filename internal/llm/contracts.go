package llm

import (
	"context"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

// Request carries one prompt plus the document bytes it refers to.
type Request struct {
	Prompt   string
	Document []byte
	MimeType string
}

// Reply is the provider's raw answer. Truncated is set from the provider's
// structured finish signal, not from guessing at error text.
type Reply struct {
	Text      string
	Usage     entity.TokenUsage
	Truncated bool
}

// VisionExtractor is the interface the extraction engine depends on.
type VisionExtractor interface {
	Generate(ctx context.Context, req Request) (Reply, error)
}
