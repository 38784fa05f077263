package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"
	"research_probe/infrastructure/config"

	"github.com/sirupsen/logrus"
)

var epoch = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.now = c.now.Add(d)
		c.slept += d
	}
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fakeElement struct {
	text     string
	html     string
	typed    strings.Builder
	clicks   int
	clickErr error

	evalResult any
	evalErr    error
	evalArgs   []any
}

func (e *fakeElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.clicks++
	return e.clickErr
}

func (e *fakeElement) TypeText(ctx context.Context, text string, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.typed.WriteString(text)
	return nil
}

func (e *fakeElement) InnerText(ctx context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) InnerHTML(ctx context.Context) (string, error) { return e.html, nil }

func (e *fakeElement) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	e.evalArgs = append(e.evalArgs, arg)
	return e.evalResult, e.evalErr
}

// fakePage is an in-memory page. Selectors in visible resolve immediately; anything
// else costs the full timeout on the fake clock and fails with a timeout error.
type fakePage struct {
	clock *fakeClock
	url   string

	navErr    error
	visible   map[string]*fakeElement
	broken    map[string]error
	busyUntil map[string]time.Time
	lists     map[string][]*fakeElement

	waited      []string
	keys        []string
	screenshots []string
	closed      bool
}

func newFakePage(clock *fakeClock) *fakePage {
	return &fakePage{
		clock:     clock,
		url:       "about:blank",
		visible:   map[string]*fakeElement{},
		broken:    map[string]error{},
		busyUntil: map[string]time.Time{},
		lists:     map[string][]*fakeElement{},
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if p.navErr != nil {
		p.clock.advance(timeout)
		return p.navErr
	}
	p.url = url
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.waited = append(p.waited, selector)
	if err, ok := p.broken[selector]; ok {
		return nil, err
	}
	if el, ok := p.visible[selector]; ok {
		return el, nil
	}
	p.clock.advance(timeout)
	return nil, fmt.Errorf("element not visible: %w", entities.ErrTimeout)
}

func (p *fakePage) IsVisible(ctx context.Context, selector string) (bool, error) {
	if until, ok := p.busyUntil[selector]; ok {
		return p.clock.Now().Before(until), nil
	}
	_, ok := p.visible[selector]
	return ok, nil
}

func (p *fakePage) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if err, ok := p.broken[selector]; ok {
		return nil, err
	}
	var out []interfaces.Element
	for _, el := range p.lists[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (p *fakePage) PressKey(ctx context.Context, key string) error {
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	p.screenshots = append(p.screenshots, filepath.Base(path))
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeLauncher struct {
	page *fakePage
	err  error
	opts interfaces.LaunchOptions
}

func (l *fakeLauncher) Launch(ctx context.Context, opts interfaces.LaunchOptions) (interfaces.Page, error) {
	l.opts = opts
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

type artifact struct {
	header  string
	content string
}

type memSink struct {
	header    string
	infos     []string
	errors    []string
	artifacts []artifact
}

func (s *memSink) Begin(header string) error {
	s.header = header
	return nil
}

func (s *memSink) Info(line string)  { s.infos = append(s.infos, line) }
func (s *memSink) Error(line string) { s.errors = append(s.errors, line) }

func (s *memSink) SaveArtifact(header, content string) error {
	s.artifacts = append(s.artifacts, artifact{header: header, content: content})
	return nil
}

func (s *memSink) Path() string { return "memory.log" }
func (s *memSink) Close() error { return nil }

func (s *memSink) artifact(header string) (artifact, bool) {
	for _, a := range s.artifacts {
		if a.header == header {
			return a, true
		}
	}
	return artifact{}, false
}

func (s *memSink) logged(substr string) bool {
	for _, l := range append(append([]string{}, s.infos...), s.errors...) {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// fakeGate reports a login wall while gated returns true. Each check costs up to
// cost on clock, capped by the budget it is given.
type fakeGate struct {
	gated   func(calls int) bool
	calls   int
	clock   *fakeClock
	cost    time.Duration
	budgets []time.Duration
}

func (g *fakeGate) Detect(ctx context.Context, page interfaces.Page, budget time.Duration) (bool, string) {
	g.calls++
	g.budgets = append(g.budgets, budget)
	if g.clock != nil {
		spent := g.cost
		if budget > 0 {
			spent = min(spent, budget)
		}
		g.clock.advance(spent)
	}
	if g.gated != nil && g.gated(g.calls) {
		return true, "text=Log in"
	}
	return false, ""
}

type fakeRenderer struct{}

func (fakeRenderer) Render(html, baseURL string) (string, error) {
	if html == "" {
		return "", errors.New("empty html")
	}
	return "md:" + html, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TargetURL = "https://chat.example.com"
	cfg.PrimaryPrompt = "summarize the current state of battery research"
	cfg.ScreenshotDir = t.TempDir()
	cfg.Browser.UserDataDir = t.TempDir()
	return cfg
}

func testSession(t *testing.T, cfg *config.Config, page *fakePage, clock *fakeClock) (*Session, *memSink) {
	t.Helper()
	sink := &memSink{}
	logger := quietLogger()
	return &Session{
		RunID:    "test-run",
		Config:   cfg,
		Page:     page,
		Sink:     sink,
		Jitter:   NewSeededJitter(clock, 7, cfg.Timing.KeystrokeMin.Duration, cfg.Timing.KeystrokeMax.Duration),
		Clock:    clock,
		Resolver: NewResolver(logger),
		Capturer: NewCapturer(nil, clock, logger),
		AuthGate: &fakeGate{},
		Logger:   logger,
	}, sink
}

func longText(n int) string {
	return strings.Repeat("r", n)
}
