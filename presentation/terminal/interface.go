package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"research_probe/application/probe"
	"research_probe/domain/entities"
	"research_probe/domain/interfaces"
	"research_probe/infrastructure/browser"
	"research_probe/infrastructure/config"
	"research_probe/infrastructure/desktop"
	"research_probe/infrastructure/security"
	"research_probe/infrastructure/storage"
	"research_probe/infrastructure/transform"

	"github.com/sirupsen/logrus"
	"github.com/ternarybob/banner"
)

const version = "1.0.0"

type TerminalInterface struct {
	cfg          *config.Config
	orchestrator *probe.Orchestrator
	sink         interfaces.Sink
	logger       *logrus.Logger
}

func NewTerminalInterface() (*TerminalInterface, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	sink := storage.NewOutputLog(cfg.OutputFile, logger)

	orchestrator := probe.NewOrchestrator(cfg, probe.Dependencies{
		Launcher: browser.NewLauncher(logger),
		Sink:     sink,
		AuthGate: security.NewAuthGate(cfg.Selectors.AuthGate, cfg.Timing.AuthProbeTimeout.Duration, logger),
		Window:   desktop.NewAutomation(logger),
		Renderer: transform.NewMarkdownRenderer(logger),
		Logger:   logger,
	})

	return &TerminalInterface{
		cfg:          cfg,
		orchestrator: orchestrator,
		sink:         sink,
		logger:       logger,
	}, nil
}

// Run - executes a single probe run; the report carries the exit code and a non-nil
// error explains a failed run
func (t *TerminalInterface) Run() (*entities.RunReport, error) {
	printHeader(t.cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := t.orchestrator.Run(ctx)

	if report.Succeeded() {
		fmt.Println("\nAll steps completed successfully!")
		if n := len(report.Degradations()); n > 0 {
			fmt.Printf("%d step(s) degraded, see the run summary in %s\n", n, t.sink.Path())
		}
		return report, nil
	}

	fmt.Println("\nTest failed - check error messages above")
	if step, ok := report.FatalStep(); ok {
		return report, entities.NewStepError(step.Name, step.Outcome.Error, errors.New(step.Outcome.Reason))
	}
	return report, fmt.Errorf("run %s finished with status %s", report.RunID, report.Status)
}

func printHeader(cfg *config.Config) {
	banner.PrintSimple("Research Probe", "v"+version)
	fmt.Printf("Target: %s\n", cfg.TargetURL)
	fmt.Printf("Output: %s\n", cfg.OutputFile)
	fmt.Printf("Step Delay: %dms\n\n", cfg.InterStepDelay.Milliseconds())
}

func (t *TerminalInterface) Close() error {
	return t.sink.Close()
}
