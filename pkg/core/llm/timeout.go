package llm

import (
	"context"
	"time"
)

// Per-call deadlines for the external services. There is no retry layer, so
// a hung call would otherwise stall a whole batch run.
const (
	GenerateTimeout = 120 * time.Second
	OCRTimeout      = 180 * time.Second
	EmbedTimeout    = 30 * time.Second
)

// callContext bounds one provider call. An earlier deadline on the parent
// context still wins.
func callContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
