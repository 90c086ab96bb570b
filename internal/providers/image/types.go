package image

import "context"

// GenerateRequest describes a normalized request passed to any image provider.
type GenerateRequest struct {
	Prompt     string
	LogoImages [][]byte
	RequestID  string
}

// Asset represents a generated image.
type Asset struct {
	URL    string
	Format string
	Width  int
	Height int
	Data   []byte
}

// Generator is the contract implemented by all image providers. A call may
// fail; retry policy belongs to the generation stage, not the provider.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}
