package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

type launcher struct {
	logger *logrus.Logger
}

type browserController struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
	page    playwright.Page
	logger  *logrus.Logger
}

type element struct {
	locator playwright.Locator
}

// NewLauncher - creates the playwright-backed session provider
func NewLauncher(logger *logrus.Logger) interfaces.Launcher {
	return &launcher{logger: logger}
}

// Launch - starts playwright and opens a persistent, visible browser context
func (l *launcher) Launch(ctx context.Context, opts interfaces.LaunchOptions) (interfaces.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to create user data directory: %w", err)
		}
	}

	browserContext, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, persistentContextOptions(opts))
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	var page playwright.Page
	if pages := browserContext.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserContext.NewPage()
		if err != nil {
			browserContext.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	page.OnDialog(func(dialog playwright.Dialog) {
		dialog.Accept()
	})

	l.logger.WithFields(logrus.Fields{
		"channel":  opts.Channel,
		"headless": opts.Headless,
		"profile":  opts.UserDataDir,
	}).Debug("Browser session launched")

	return &browserController{
		pw:      pw,
		context: browserContext,
		page:    page,
		logger:  l.logger,
	}, nil
}

func persistentContextOptions(opts interfaces.LaunchOptions) playwright.BrowserTypeLaunchPersistentContextOptions {
	options := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
		Args:     opts.Args,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		JavaScriptEnabled: playwright.Bool(true),
	}
	if opts.Channel != "" {
		options.Channel = playwright.String(opts.Channel)
	}
	if opts.UserAgent != "" {
		options.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.Locale != "" {
		options.Locale = playwright.String(opts.Locale)
	}
	if opts.TimezoneID != "" {
		options.TimezoneId = playwright.String(opts.TimezoneID)
	}
	if len(opts.Headers) > 0 {
		options.ExtraHttpHeaders = opts.Headers
	}
	return options
}

func milliseconds(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// Navigate - navigates to url and waits for network idle
func (b *browserController) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   milliseconds(timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("timeout while loading %s: %w: %w", url, entities.ErrTimeout, err)
		}
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// WaitVisible - waits for the first element matching selector to become visible
func (b *browserController) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	locator := b.page.Locator(selector).First()
	err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: milliseconds(timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("element not visible: %w: %w", entities.ErrTimeout, err)
		}
		return nil, fmt.Errorf("element not found or not visible: %w", err)
	}
	return &element{locator: locator}, nil
}

// IsVisible - checks visibility without waiting
func (b *browserController) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return b.page.Locator(selector).First().IsVisible()
}

// QueryAll - returns every element matching selector
func (b *browserController) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	locators, err := b.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}

	elements := make([]interfaces.Element, 0, len(locators))
	for _, l := range locators {
		elements = append(elements, &element{locator: l})
	}
	return elements, nil
}

// PressKey - presses a key on the page keyboard
func (b *browserController) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.page.Keyboard().Press(key)
}

// Screenshot - takes a screenshot of the current page
func (b *browserController) Screenshot(ctx context.Context, path string, fullPage bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}

	_, err := b.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	return err
}

// URL - returns the current page URL
func (b *browserController) URL() string {
	return b.page.URL()
}

// Close - closes the browser context and stops playwright
func (b *browserController) Close() error {
	var closeErr error

	if b.context != nil {
		if err := b.context.Close(); err != nil && !isClosedError(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		b.context = nil
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil && !isClosedError(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to stop playwright: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to stop playwright: %w", err)
			}
		}
		b.pw = nil
	}

	return closeErr
}

// isClosedError - the session was already gone
func isClosedError(err error) bool {
	if errors.Is(err, playwright.ErrTargetClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.locator.Click()
}

// TypeText - sends text key by key with delay between keystrokes
func (e *element) TypeText(ctx context.Context, text string, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.locator.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: milliseconds(delay),
	})
}

func (e *element) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.locator.InnerText()
}

func (e *element) InnerHTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.locator.InnerHTML()
}

// Evaluate - runs script with the element as first argument
func (e *element) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.locator.Evaluate(script, arg)
}
