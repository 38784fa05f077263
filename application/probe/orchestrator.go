package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"
	"research_probe/infrastructure/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	runHeader      = "Web Testing Agent"
	launchStepName = "launch"
)

// Dependencies are the ports the orchestrator drives. Window and Renderer are optional.
type Dependencies struct {
	Launcher interfaces.Launcher
	Sink     interfaces.Sink
	AuthGate interfaces.AuthGate
	Window   interfaces.WindowAutomation
	Renderer interfaces.ResponseRenderer
	Logger   *logrus.Logger

	// Clock and Jitter default to the wall clock and a time-seeded jitter
	Clock  Clock
	Jitter *Jitter
}

// Orchestrator runs the step sequence once against a freshly launched session
type Orchestrator struct {
	cfg  *config.Config
	deps Dependencies
}

func NewOrchestrator(cfg *config.Config, deps Dependencies) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Jitter == nil {
		deps.Jitter = NewJitter(deps.Clock, cfg.Timing.KeystrokeMin.Duration, cfg.Timing.KeystrokeMax.Duration)
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Steps - the sequence for this configuration; optional steps appear only when configured
func (o *Orchestrator) Steps() []Step {
	cfg := o.cfg
	steps := []Step{NavigateStep{URL: cfg.TargetURL}}

	if cfg.Window.Title != "" {
		steps = append(steps, FocusWindowStep{WindowTitle: cfg.Window.Title})
	}
	steps = append(steps, SelectFeatureStep{})
	if cfg.HasAttachment() {
		steps = append(steps, AttachFileStep{Path: cfg.AttachmentFilePath})
	}

	steps = append(steps,
		SubmitPromptStep{Prompt: cfg.PrimaryPrompt, Label: "step4"},
		AwaitResponseStep{Prompt: cfg.PrimaryPrompt, Label: "step5"},
	)
	if cfg.HasSecondaryPrompt() {
		steps = append(steps,
			SubmitPromptStep{Prompt: cfg.SecondaryPrompt, Label: "step6", Followup: true},
			AwaitResponseStep{Prompt: cfg.SecondaryPrompt, Label: "step7", Followup: true},
		)
	}
	return steps
}

// Run - executes one probe run and reports how each step ended
func (o *Orchestrator) Run(ctx context.Context) *entities.RunReport {
	cfg := o.cfg
	sink := o.deps.Sink
	clock := o.deps.Clock

	report := &entities.RunReport{
		RunID:   uuid.NewString(),
		Status:  entities.RunStatusRunning,
		Started: clock.Now(),
	}
	logger := o.deps.Logger.WithField("run_id", report.RunID)

	if err := sink.Begin(runHeader); err != nil {
		logger.WithError(err).Error("Failed to initialize output log")
	}
	sink.Info(fmt.Sprintf("   Using %dms delay between steps for human-like behavior", cfg.InterStepDelay.Milliseconds()))

	sink.Info("Step 1: Launching Google Chrome browser...")
	started := clock.Now()
	page, err := o.deps.Launcher.Launch(ctx, launchOptions(cfg))
	if err != nil {
		sink.Error(fmt.Sprintf("Failed to launch browser: %v", err))
		sink.Info("   Make sure Google Chrome is installed on your system")
		outcome := entities.Fatal(entities.ErrUnexpectedSession, err.Error())
		report.Steps = append(report.Steps, o.result(launchStepName, outcome, started))
		o.summarize(report)
		return o.finish(report, entities.RunStatusFailed)
	}
	sink.Info("Browser launched successfully")
	report.Steps = append(report.Steps, o.result(launchStepName, entities.Success(), started))

	session := &Session{
		RunID:    report.RunID,
		Config:   cfg,
		Page:     page,
		Sink:     sink,
		Jitter:   o.deps.Jitter,
		Clock:    clock,
		Resolver: NewResolver(o.deps.Logger),
		Capturer: NewCapturer(o.deps.Renderer, clock, o.deps.Logger),
		AuthGate: o.deps.AuthGate,
		Window:   o.deps.Window,
		Logger:   o.deps.Logger,
	}

	for i, step := range o.Steps() {
		sink.Info(fmt.Sprintf("   Waiting %dms before next step...", cfg.InterStepDelay.Milliseconds()))
		if err := session.Jitter.Pause(ctx, cfg.InterStepDelay.Duration); err != nil {
			o.abort(session, report, step, entities.Fatal(entities.ErrUnexpectedSession, err.Error()), clock.Now())
			return o.finish(report, entities.RunStatusFailed)
		}

		sink.Info(fmt.Sprintf("Step %d: %s", i+2, step.Title()))
		started := clock.Now()
		outcome := step.Run(ctx, session)

		stepLog := logger.WithFields(logrus.Fields{
			"step":    step.Name(),
			"outcome": outcome.Kind,
		})
		switch {
		case outcome.IsFatal():
			stepLog.WithField("error", outcome.Error).Error(outcome.Reason)
			o.abort(session, report, step, outcome, started)
			return o.finish(report, entities.RunStatusFailed)
		case outcome.IsDegraded():
			stepLog.WithField("error", outcome.Error).Warn(outcome.Reason)
			sink.Info(fmt.Sprintf("Warning in %s: %s", step.Name(), outcome.Reason))
		default:
			stepLog.Debug("Step completed")
		}
		report.Steps = append(report.Steps, o.result(step.Name(), outcome, started))
	}

	report.Responses = session.Responses
	sink.Info("Test completed successfully!")
	sink.Info(fmt.Sprintf("Output saved to: %s", sink.Path()))
	o.summarize(report)

	grace := cfg.Timing.GracePeriod.Duration
	sink.Info(fmt.Sprintf("Browser will close in %d seconds...", int(grace.Seconds())))
	if err := session.Jitter.Pause(ctx, grace); err != nil {
		logger.WithError(err).Debug("Grace period interrupted")
	}
	o.closePage(page)

	status := entities.RunStatusSucceeded
	if len(report.Degradations()) > 0 {
		status = entities.RunStatusDegraded
	}
	return o.finish(report, status)
}

// abort - diagnostic screenshot, final log line and session close after a fatal outcome
func (o *Orchestrator) abort(s *Session, report *entities.RunReport, step Step, outcome entities.StepOutcome, started time.Time) {
	report.Steps = append(report.Steps, o.result(step.Name(), outcome, started))
	report.Responses = s.Responses

	// ctx may already be cancelled here
	shotCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Checkpoint(shotCtx, "error_"+step.Name(), false)

	s.Sink.Error(fmt.Sprintf("Test failed at %s: %s", step.Name(), outcome.Reason))
	o.summarize(report)
	o.closePage(s.Page)
}

// summarize - writes the run summary artifact listing every degradation
func (o *Orchestrator) summarize(report *entities.RunReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "Run ID: %s\n", report.RunID)
	for _, st := range report.Steps {
		fmt.Fprintf(&b, "%-16s %s\n", st.Name, st.Outcome)
	}

	degradations := report.Degradations()
	if len(degradations) == 0 {
		b.WriteString("Degradations: none")
	} else {
		fmt.Fprintf(&b, "Degradations: %d", len(degradations))
		for _, d := range degradations {
			fmt.Fprintf(&b, "\n  - %s: %s", d.Name, d.Outcome.Reason)
		}
	}

	if err := o.deps.Sink.SaveArtifact("RUN SUMMARY", b.String()); err != nil {
		o.deps.Logger.WithError(err).Error("Failed to save run summary")
	}
}

func (o *Orchestrator) closePage(page interfaces.Page) {
	if err := page.Close(); err != nil && !errors.Is(err, context.Canceled) {
		o.deps.Logger.WithError(err).Warn("Failed to close browser")
	}
}

func (o *Orchestrator) result(name string, outcome entities.StepOutcome, started time.Time) entities.StepResult {
	return entities.StepResult{
		Name:     name,
		Outcome:  outcome,
		Started:  started,
		Duration: o.deps.Clock.Now().Sub(started),
	}
}

func (o *Orchestrator) finish(report *entities.RunReport, status entities.RunStatus) *entities.RunReport {
	report.Status = status
	report.Finished = o.deps.Clock.Now()
	o.deps.Logger.WithFields(logrus.Fields{
		"run_id":       report.RunID,
		"status":       status,
		"degradations": len(report.Degradations()),
	}).Info("Probe run finished")
	return report
}

func launchOptions(cfg *config.Config) interfaces.LaunchOptions {
	b := cfg.Browser
	return interfaces.LaunchOptions{
		Channel:        b.Channel,
		Headless:       b.Headless,
		SlowMo:         b.SlowMo.Duration,
		ViewportWidth:  b.ViewportWidth,
		ViewportHeight: b.ViewportHeight,
		UserAgent:      b.UserAgent,
		Locale:         b.Locale,
		TimezoneID:     b.TimezoneID,
		Headers:        b.Headers,
		UserDataDir:    b.UserDataDir,
		Args:           b.Args,
	}
}
