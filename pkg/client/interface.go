package client

import (
	"context"

	"github.com/menta2k/template-synth/pkg/types"
)

// VisionClient is a vision model backend used to audit generated samples.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	Detect(ctx context.Context, model, prompt, imgB64 string) (*types.Detection, error)
}
