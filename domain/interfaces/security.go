package interfaces

import (
	"context"
	"time"
)

// AuthGate detects an authentication wall blocking the flow
type AuthGate interface {
	// Detect reports whether page currently shows a login gate and which signal matched.
	// A positive budget caps the total time spent probing selectors.
	Detect(ctx context.Context, page Page, budget time.Duration) (bool, string)
}
