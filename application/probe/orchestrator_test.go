package probe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"research_probe/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, launcher *fakeLauncher, clock *fakeClock) (*Orchestrator, *memSink) {
	t.Helper()
	cfg := testConfig(t)
	sink := &memSink{}
	o := NewOrchestrator(cfg, Dependencies{
		Launcher: launcher,
		Sink:     sink,
		AuthGate: &fakeGate{},
		Logger:   quietLogger(),
		Clock:    clock,
		Jitter:   NewSeededJitter(clock, 11, cfg.Timing.KeystrokeMin.Duration, cfg.Timing.KeystrokeMax.Duration),
	})
	return o, sink
}

func stepNames(report *entities.RunReport) []string {
	names := make([]string, 0, len(report.Steps))
	for _, s := range report.Steps {
		names = append(names, s.Name)
	}
	return names
}

func TestOrchestrator_StepsFollowConfiguration(t *testing.T) {
	clock := newFakeClock()
	o, _ := newTestOrchestrator(t, &fakeLauncher{}, clock)

	var names []string
	for _, s := range o.Steps() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"navigate", "select_feature", "submit_prompt", "await_response"}, names)

	o.cfg.Window.Title = "Chrome"
	o.cfg.AttachmentFilePath = "report.pdf"
	o.cfg.SecondaryPrompt = "now cite your sources"

	names = names[:0]
	for _, s := range o.Steps() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"navigate", "focus_window", "select_feature", "attach_file",
		"submit_prompt", "await_response", "submit_followup", "await_followup",
	}, names)
}

func TestOrchestrator_UnreachableTargetIsFatal(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	page.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	o, sink := newTestOrchestrator(t, &fakeLauncher{page: page}, clock)

	report := o.Run(context.Background())

	assert.Equal(t, entities.RunStatusFailed, report.Status)
	assert.Equal(t, 1, report.ExitCode())
	fatal, ok := report.FatalStep()
	require.True(t, ok)
	assert.Equal(t, "navigate", fatal.Name)
	assert.Equal(t, entities.ErrUnexpectedSession, fatal.Outcome.Error)
	assert.Equal(t, []string{"launch", "navigate"}, stepNames(report))

	assert.True(t, page.closed)
	assert.Contains(t, page.screenshots, "error_navigate.png")
	assert.True(t, sink.logged("Test failed at navigate"))
	_, hasSummary := sink.artifact("RUN SUMMARY")
	assert.True(t, hasSummary)

	// bounded by the navigation timeout plus one inter-step delay, no grace period
	bound := o.cfg.Timing.NavigationTimeout.Duration + o.cfg.InterStepDelay.Duration
	assert.LessOrEqual(t, clock.Now().Sub(epoch), bound)
}

func TestOrchestrator_LaunchFailure(t *testing.T) {
	clock := newFakeClock()
	o, sink := newTestOrchestrator(t, &fakeLauncher{err: errors.New("chrome not found")}, clock)

	report := o.Run(context.Background())

	assert.Equal(t, 1, report.ExitCode())
	assert.Equal(t, []string{"launch"}, stepNames(report))
	assert.Equal(t, entities.ErrUnexpectedSession, report.Steps[0].Outcome.Error)
	assert.True(t, sink.logged("Make sure Google Chrome is installed"))
	assert.Equal(t, "Web Testing Agent", sink.header)

	summary, ok := sink.artifact("RUN SUMMARY")
	require.True(t, ok)
	assert.Contains(t, summary.content, "launch")
	assert.Contains(t, summary.content, "Degradations: none")
}

func TestOrchestrator_ContentEditableInputWithEnterFallback(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	editor := &fakeElement{}
	page.visible["[contenteditable='true']"] = editor
	page.lists["[data-message-author-role='assistant']"] = []*fakeElement{{text: longText(300)}}

	launcher := &fakeLauncher{page: page}
	o, sink := newTestOrchestrator(t, launcher, clock)
	o.cfg.Selectors.Input = []string{
		"textarea[placeholder*='Message']",
		"#prompt-textarea",
		"[contenteditable='true']",
	}

	report := o.Run(context.Background())

	assert.Equal(t, []string{"launch", "navigate", "select_feature", "submit_prompt", "await_response"}, stepNames(report))
	assert.Equal(t, entities.RunStatusDegraded, report.Status)
	assert.Equal(t, 0, report.ExitCode())

	assert.Equal(t, o.cfg.PrimaryPrompt, editor.typed.String())
	assert.Equal(t, []string{"Enter"}, page.keys)
	assert.True(t, sink.logged("Found input field: [contenteditable='true']"))
	assert.True(t, sink.logged("Pressed Enter to submit"))

	require.Len(t, report.Responses, 1)
	assert.Equal(t, o.cfg.PrimaryPrompt, report.Responses[0].Prompt)
	out, ok := sink.artifact("DEEP RESEARCH OUTPUT")
	require.True(t, ok)
	assert.Equal(t, longText(300), out.content)

	degradations := report.Degradations()
	require.Len(t, degradations, 1)
	assert.Equal(t, "select_feature", degradations[0].Name)
	summary, ok := sink.artifact("RUN SUMMARY")
	require.True(t, ok)
	assert.Contains(t, summary.content, "select_feature: continuing with default model")

	assert.True(t, sink.logged("Test completed successfully!"))
	assert.True(t, sink.logged("Output saved to: memory.log"))
	assert.True(t, page.closed)

	assert.Equal(t, "chrome", launcher.opts.Channel)
	assert.Equal(t, 1920, launcher.opts.ViewportWidth)
	assert.Equal(t, "America/Los_Angeles", launcher.opts.TimezoneID)
}

func TestOrchestrator_MissingAttachmentDegradesAndContinues(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	page.visible["#prompt-textarea"] = &fakeElement{}
	page.visible["button[data-testid='send-button']"] = &fakeElement{}
	page.lists[".markdown"] = []*fakeElement{{text: longText(250)}}

	o, _ := newTestOrchestrator(t, &fakeLauncher{page: page}, clock)
	o.cfg.AttachmentFilePath = filepath.Join(t.TempDir(), "missing.pdf")

	report := o.Run(context.Background())

	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, []string{"launch", "navigate", "select_feature", "attach_file", "submit_prompt", "await_response"}, stepNames(report))

	var attach entities.StepResult
	for _, s := range report.Steps {
		if s.Name == "attach_file" {
			attach = s
		}
	}
	assert.True(t, attach.Outcome.IsDegraded())
	assert.Equal(t, entities.ErrAttachmentFailure, attach.Outcome.Error)
	assert.True(t, report.Steps[4].Outcome.IsSuccess())
	assert.Len(t, report.Responses, 1)
}

func TestOrchestrator_SecondaryPromptCapturesTwice(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	page.visible["#prompt-textarea"] = &fakeElement{}
	page.visible["text=Deep Research"] = &fakeElement{}
	page.lists["[data-message-author-role='assistant']"] = []*fakeElement{{text: longText(300)}}

	o, sink := newTestOrchestrator(t, &fakeLauncher{page: page}, clock)
	o.cfg.SecondaryPrompt = "now list the sources"

	report := o.Run(context.Background())

	assert.Equal(t, entities.RunStatusSucceeded, report.Status)
	require.Len(t, report.Responses, 2)
	assert.Equal(t, "now list the sources", report.Responses[1].Prompt)
	assert.Equal(t, []string{"Enter", "Enter"}, page.keys)
	assert.Contains(t, page.screenshots, "step6_prompt_entered.png")
	assert.Contains(t, page.screenshots, "step7_final_output.png")

	summary, ok := sink.artifact("RUN SUMMARY")
	require.True(t, ok)
	assert.Contains(t, summary.content, "Degradations: none")
}

func TestOrchestrator_CancelledRunStopsAndCloses(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	o, _ := newTestOrchestrator(t, &fakeLauncher{page: page}, clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := o.Run(ctx)

	assert.Equal(t, entities.RunStatusFailed, report.Status)
	assert.True(t, page.closed)
	assert.Equal(t, epoch, clock.Now())
}
