package interfaces

import (
	"context"
	"time"
)

// WindowAutomation is the optional OS-level helper. Every method is best-effort.
type WindowAutomation interface {
	// Focus brings the window whose title contains title to the foreground
	Focus(ctx context.Context, title string) bool

	// LocateAndClickImage finds templatePath on screen and clicks its center
	LocateAndClickImage(ctx context.Context, templatePath string, confidence float64, timeout time.Duration) bool
}
