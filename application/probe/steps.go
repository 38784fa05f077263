package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"research_probe/domain/entities"

	"github.com/sirupsen/logrus"
)

// Step is one unit of the fixed interaction sequence
type Step interface {
	// Name is the stable identifier used in reports and diagnostic screenshot names
	Name() string
	// Title is the human readable progress line
	Title() string
	Run(ctx context.Context, s *Session) entities.StepOutcome
}

// NavigateStep opens the target page
type NavigateStep struct {
	URL string
}

func (NavigateStep) Name() string { return "navigate" }

func (n NavigateStep) Title() string { return fmt.Sprintf("Opening %s...", n.URL) }

func (n NavigateStep) Run(ctx context.Context, s *Session) entities.StepOutcome {
	err := s.Page.Navigate(ctx, n.URL, s.Config.Timing.NavigationTimeout.Duration)
	if err != nil {
		if errors.Is(err, entities.ErrTimeout) {
			s.Sink.Error(fmt.Sprintf("Timeout while loading %s", n.URL))
			return entities.Fatal(entities.ErrActionTimeout, err.Error())
		}
		s.Sink.Error(fmt.Sprintf("Failed to open %s: %v", n.URL, err))
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	if err := s.Jitter.Delay(ctx, 2*time.Second, 3*time.Second); err != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	s.Sink.Info("Page loaded successfully")
	s.Checkpoint(ctx, "step2_page_loaded", false)
	return entities.Success()
}

// FocusWindowStep raises the browser window through the desktop helper
type FocusWindowStep struct {
	WindowTitle string
}

func (FocusWindowStep) Name() string { return "focus_window" }

func (f FocusWindowStep) Title() string {
	return fmt.Sprintf("Focusing window %q...", f.WindowTitle)
}

func (f FocusWindowStep) Run(ctx context.Context, s *Session) entities.StepOutcome {
	if s.Window == nil || !s.Window.Focus(ctx, f.WindowTitle) {
		s.Sink.Info(fmt.Sprintf("   Could not focus window %q - continuing", f.WindowTitle))
		return entities.Degraded(entities.ErrElementNotFound, "window not focused")
	}
	s.Sink.Info("   Window focused")
	return entities.Success()
}

// SelectFeatureStep switches the chat to the deep research feature
type SelectFeatureStep struct{}

func (SelectFeatureStep) Name() string { return "select_feature" }

func (SelectFeatureStep) Title() string { return "Selecting 'Deep Research' feature..." }

func (SelectFeatureStep) Run(ctx context.Context, s *Session) entities.StepOutcome {
	cfg := s.Config
	visibility := cfg.Timing.VisibilityTimeout.Duration
	defer s.Checkpoint(ctx, "step3_after_selection", false)

	el, match, found := s.Resolver.Resolve(ctx, s.Page, cfg.Selectors.Feature, visibility)
	if !found {
		s.Sink.Info("   Looking for model dropdown menu...")
		s.Checkpoint(ctx, "step3_looking_for_dropdown", false)
		el, match, found = s.retryAfterLogin(ctx, cfg.Selectors.Feature, visibility)
	}

	if found {
		if err := s.clickWithJitter(ctx, el, 500*time.Millisecond, 800*time.Millisecond); err != nil {
			s.Logger.WithError(err).WithField("selector", match.Selector).Warn("Failed to click feature selector")
		} else {
			s.Sink.Info(fmt.Sprintf("   Clicked: %s", match.Selector))
		}
	}

	if ctx.Err() != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, ctx.Err().Error())
	}

	option, optMatch, ok := s.Resolver.Resolve(ctx, s.Page, cfg.Selectors.FeatureOption, visibility)
	if ok {
		if err := s.clickWithJitter(ctx, option, 400*time.Millisecond, 700*time.Millisecond); err == nil {
			s.Sink.Info("Selected 'Deep Research' feature")
			s.Logger.WithField("selector", optMatch.Selector).Debug("Feature option selected")
			return entities.Success()
		}
	}

	if cfg.FeatureImagePath != "" && s.Window != nil {
		s.Sink.Info("   Trying on-screen image match for the feature button...")
		if s.Window.LocateAndClickImage(ctx, cfg.FeatureImagePath, cfg.Window.ImageConfidence, cfg.Window.ImageTimeout.Duration) {
			s.Sink.Info("Selected 'Deep Research' feature by image")
			return entities.Success()
		}
	}

	s.Sink.Info("   Deep Research option not found - continuing with default model")
	return entities.Degraded(entities.ErrElementNotFound, "continuing with default model")
}

// SubmitPromptStep types a prompt into the chat input and submits it
type SubmitPromptStep struct {
	Prompt string
	// Label prefixes screenshots, e.g. "step4"
	Label    string
	Followup bool
}

func (p SubmitPromptStep) Name() string {
	if p.Followup {
		return "submit_followup"
	}
	return "submit_prompt"
}

func (p SubmitPromptStep) Title() string {
	if p.Followup {
		return "Inputting follow-up prompt..."
	}
	return "Inputting prompt..."
}

func (p SubmitPromptStep) Run(ctx context.Context, s *Session) entities.StepOutcome {
	cfg := s.Config
	s.Sink.Info(fmt.Sprintf("   Prompt: %q", p.Prompt))

	input, match, found := s.resolveRequired(ctx, cfg.Selectors.Input, cfg.Timing.VisibilityTimeout.Duration)
	if !found {
		s.Sink.Error("Could not find input field")
		return entities.Fatal(entities.ErrElementNotFound, "input field not found")
	}
	s.Sink.Info(fmt.Sprintf("   Found input field: %s", match.Selector))

	s.Sink.Info("   Typing prompt (human-like speed)...")
	if err := s.typeLikeHuman(ctx, input, p.Prompt); err != nil {
		s.Sink.Error(fmt.Sprintf("Failed to input prompt: %v", err))
		return entities.Fatal(classify(err), err.Error())
	}
	s.Sink.Info("Prompt entered successfully")
	s.Checkpoint(ctx, p.Label+"_prompt_entered", false)

	if err := s.Jitter.Delay(ctx, 800*time.Millisecond, 1200*time.Millisecond); err != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	s.Sink.Info("   Submitting prompt...")
	if err := p.submit(ctx, s); err != nil {
		s.Sink.Error(fmt.Sprintf("Failed to submit prompt: %v", err))
		return entities.Fatal(classify(err), err.Error())
	}
	s.Sink.Info("Prompt submitted")
	return entities.Success()
}

func (p SubmitPromptStep) submit(ctx context.Context, s *Session) error {
	button, match, found := s.Resolver.Resolve(ctx, s.Page, s.Config.Selectors.Submit, s.Config.Timing.SubmitTimeout.Duration)
	if found {
		err := s.clickWithJitter(ctx, button, 300*time.Millisecond, 600*time.Millisecond)
		if err == nil {
			s.Sink.Info(fmt.Sprintf("   Clicked send button: %s", match.Selector))
			return nil
		}
		s.Logger.WithError(err).WithField("selector", match.Selector).Warn("Send button click failed, falling back to Enter")
	}

	if err := s.Jitter.Delay(ctx, 200*time.Millisecond, 400*time.Millisecond); err != nil {
		return err
	}
	if err := s.Page.PressKey(ctx, "Enter"); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	s.Sink.Info("   Pressed Enter to submit")
	return nil
}

// AwaitResponseStep waits for generation to finish and captures the newest response
type AwaitResponseStep struct {
	Prompt   string
	Label    string
	Followup bool
}

func (a AwaitResponseStep) Name() string {
	if a.Followup {
		return "await_followup"
	}
	return "await_response"
}

func (AwaitResponseStep) Title() string {
	return "Waiting for response (this may take a while for Deep Research)..."
}

func (a AwaitResponseStep) Run(ctx context.Context, s *Session) entities.StepOutcome {
	cfg := s.Config

	if err := s.Jitter.Pause(ctx, cfg.Timing.InitialResponseDelay.Duration); err != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	poller := NewPoller(cfg.Selectors.BusyIndicators, cfg.Timing.PollInterval.Duration, cfg.ResponseWaitCeiling.Duration, s.Clock, s.Logger)
	state, err := poller.Wait(ctx, s.Page, func(st entities.PollState) {
		s.Sink.Info(fmt.Sprintf("   Still generating... (%ds elapsed)", int(st.Elapsed.Seconds())))
	})
	if err != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	var timedOut bool
	switch state.Phase {
	case entities.PollComplete:
		s.Sink.Info("   Response appears complete")
	case entities.PollTimedOut:
		timedOut = true
		s.Sink.Error(fmt.Sprintf("Timeout while waiting for response (%ds elapsed)", int(state.Elapsed.Seconds())))
	}
	s.Logger.WithFields(logrus.Fields{
		"phase":   state.Phase,
		"ticks":   state.Ticks,
		"elapsed": state.Elapsed,
	}).Debug("Generation wait finished")

	if err := s.Jitter.Delay(ctx, 2*time.Second, 3*time.Second); err != nil {
		return entities.Fatal(entities.ErrUnexpectedSession, err.Error())
	}

	outcome := entities.Success()
	resp, ok := s.Capturer.Capture(ctx, s.Page, cfg.Selectors.Response, cfg.MinResponseLength)
	if ok {
		resp.Prompt = a.Prompt
		s.Responses = append(s.Responses, resp)
		s.Sink.Info("Response captured successfully")
		if err := s.Sink.SaveArtifact("DEEP RESEARCH OUTPUT", resp.Body()); err != nil {
			s.Logger.WithError(err).Error("Failed to save response")
		}
	} else {
		s.Sink.Error("Could not capture response text")
		s.Checkpoint(ctx, a.Label+"_response_state", true)
		outcome = entities.Degraded(entities.ErrCaptureEmpty, "no response block qualified")
	}

	s.Checkpoint(ctx, a.Label+"_final_output", true)

	// a partial response is kept even when the timeout fails the run
	if timedOut && cfg.FailOnGenerationTimeout {
		return entities.Fatal(entities.ErrActionTimeout, "generation did not finish")
	}
	if timedOut && outcome.IsSuccess() {
		return entities.Degraded(entities.ErrActionTimeout, "generation still running at the wait ceiling")
	}
	return outcome
}

// classify - maps a driver error onto the failure taxonomy
func classify(err error) entities.ErrorKind {
	if errors.Is(err, entities.ErrTimeout) {
		return entities.ErrActionTimeout
	}
	return entities.ErrUnexpectedSession
}
