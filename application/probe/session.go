package probe

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"
	"research_probe/infrastructure/config"

	"github.com/sirupsen/logrus"
)

// authRecheckInterval is how often a detected login gate is re-checked during the manual wait
const authRecheckInterval = 5 * time.Second

// Session is the handle lent to each step. Only the orchestrator creates one, once per run.
type Session struct {
	RunID  string
	Config *config.Config
	Page   interfaces.Page
	Sink   interfaces.Sink

	Jitter   *Jitter
	Clock    Clock
	Resolver *Resolver
	Capturer *Capturer
	AuthGate interfaces.AuthGate
	Window   interfaces.WindowAutomation
	Logger   *logrus.Logger

	Responses []entities.CapturedResponse
}

// Checkpoint - saves a named diagnostic screenshot; failures are logged, never returned
func (s *Session) Checkpoint(ctx context.Context, name string, fullPage bool) {
	file := name + ".png"
	path := filepath.Join(s.Config.ScreenshotDir, file)
	if err := s.Page.Screenshot(ctx, path, fullPage); err != nil {
		s.Logger.WithError(err).WithField("screenshot", file).Warn("Failed to capture screenshot")
		return
	}
	s.Sink.Info(fmt.Sprintf("   Screenshot saved: %s", file))
}

// resolveRequired - resolves candidates and falls back to retryAfterLogin when nothing is visible
func (s *Session) resolveRequired(ctx context.Context, candidates entities.SelectorCandidates, timeout time.Duration) (interfaces.Element, entities.Match, bool) {
	el, match, ok := s.Resolver.Resolve(ctx, s.Page, candidates, timeout)
	if ok {
		return el, match, true
	}
	return s.retryAfterLogin(ctx, candidates, timeout)
}

// retryAfterLogin - when a login gate is detected, waits for manual login up to the
// configured ceiling and retries the resolution once. Without a gate it reports NotFound.
func (s *Session) retryAfterLogin(ctx context.Context, candidates entities.SelectorCandidates, timeout time.Duration) (interfaces.Element, entities.Match, bool) {
	if !s.awaitManualLogin(ctx) {
		return nil, entities.Match{}, false
	}
	return s.Resolver.Resolve(ctx, s.Page, candidates, timeout)
}

// awaitManualLogin - returns true when a login gate was seen and the wait finished
func (s *Session) awaitManualLogin(ctx context.Context) bool {
	if s.AuthGate == nil {
		return false
	}

	gated, signal := s.AuthGate.Detect(ctx, s.Page, 0)
	if !gated {
		return false
	}

	ceiling := s.Config.Timing.AuthWaitCeiling.Duration
	s.Logger.WithFields(logrus.Fields{
		"error":  entities.ErrAuthenticationRequired,
		"signal": signal,
	}).Warn("Login gate detected")
	s.Sink.Error("Target site requires login. Please log in manually.")
	s.Sink.Info(fmt.Sprintf("   Waiting up to %s for manual login...", ceiling))

	// re-checks spend from the same ceiling as the pauses
	start := s.Clock.Now()
	remaining := func() time.Duration { return ceiling - s.Clock.Now().Sub(start) }
	for remaining() > 0 {
		if err := s.Jitter.Pause(ctx, min(authRecheckInterval, remaining())); err != nil {
			return false
		}
		left := remaining()
		if left <= 0 {
			break
		}
		if still, _ := s.AuthGate.Detect(ctx, s.Page, left); !still {
			s.Sink.Info("   Login gate cleared")
			break
		}
	}
	return true
}

// typeLikeHuman - clicks el and types text one character at a time with keystroke jitter
func (s *Session) typeLikeHuman(ctx context.Context, el interfaces.Element, text string) error {
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("failed to focus input: %w", err)
	}
	if err := s.Jitter.Delay(ctx, 200*time.Millisecond, 400*time.Millisecond); err != nil {
		return err
	}

	first := true
	for _, ch := range text {
		if !first {
			if err := s.Jitter.Pause(ctx, s.Jitter.Keystroke()); err != nil {
				return err
			}
		}
		first = false
		if err := el.TypeText(ctx, string(ch), 0); err != nil {
			return fmt.Errorf("failed to type prompt: %w", err)
		}
	}

	return s.Jitter.Delay(ctx, 300*time.Millisecond, 600*time.Millisecond)
}

// clickWithJitter - pauses in [lo, hi], clicks el and settles afterwards
func (s *Session) clickWithJitter(ctx context.Context, el interfaces.Element, lo, hi time.Duration) error {
	if err := s.Jitter.Delay(ctx, lo, hi); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return s.Jitter.Delay(ctx, 800*time.Millisecond, 1200*time.Millisecond)
}
