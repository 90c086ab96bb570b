package audit

import (
	"context"

	"brandguard/internal/domain"
)

// ReviewRequest describes one compliance review of a produced image against
// the complete, uncompressed guideline set.
type ReviewRequest struct {
	ImageData  []byte
	ImageMIME  string
	ImageURL   string
	Guidelines string
	RequestID  string
}

// Reviewer is the contract implemented by reasoning-model providers. A call
// may fail; the audit stage converts failures into degraded scores and never
// propagates them.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (domain.ComplianceScore, error)
}
