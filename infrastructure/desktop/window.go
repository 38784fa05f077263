package desktop

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"research_probe/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const imagePollInterval = 500 * time.Millisecond

// runner executes an external helper and returns its combined output
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Automation struct {
	goos   string
	run    runner
	logger *logrus.Logger
}

// NewAutomation - creates the OS helper for the current platform
func NewAutomation(logger *logrus.Logger) *Automation {
	return &Automation{
		goos:   runtime.GOOS,
		run:    execRunner,
		logger: logger,
	}
}

// Focus - raises the first window whose title contains title
func (a *Automation) Focus(ctx context.Context, title string) bool {
	var err error
	switch a.goos {
	case "linux":
		_, err = a.run(ctx, "xdotool", "search", "--name", title, "windowactivate", "--sync")
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to set frontmost of (first process whose name contains %q) to true`, title)
		_, err = a.run(ctx, "osascript", "-e", script)
	case "windows":
		script := fmt.Sprintf(`(New-Object -ComObject WScript.Shell).AppActivate(%q)`, title)
		var out []byte
		out, err = a.run(ctx, "powershell", "-NoProfile", "-Command", script)
		if err == nil && strings.TrimSpace(string(out)) != "True" {
			err = fmt.Errorf("no window titled %q", title)
		}
	default:
		err = fmt.Errorf("window focus not supported on %s", a.goos)
	}

	if err != nil {
		a.logger.WithError(err).WithField("title", title).Warn("Failed to focus window")
		return false
	}
	return true
}

// LocateAndClickImage - polls screenshots until templatePath is found with at least confidence, then clicks it
func (a *Automation) LocateAndClickImage(ctx context.Context, templatePath string, confidence float64, timeout time.Duration) bool {
	tmpl, err := loadGray(templatePath)
	if err != nil {
		a.logger.WithError(err).WithField("template", templatePath).Warn("Failed to load image template")
		return false
	}

	deadline := time.Now().Add(timeout)
	for {
		screen, err := a.captureScreen(ctx)
		if err != nil {
			a.logger.WithError(err).Warn("Screen capture unavailable")
			return false
		}

		x, y, score := matchTemplate(screen, tmpl)
		a.logger.WithFields(logrus.Fields{
			"template": filepath.Base(templatePath),
			"score":    fmt.Sprintf("%.3f", score),
		}).Debug("Template match attempt")

		if score >= confidence {
			cx, cy := x+tmpl.width/2, y+tmpl.height/2
			if err := a.click(ctx, cx, cy); err != nil {
				a.logger.WithError(err).Warn("Failed to click located image")
				return false
			}
			return true
		}

		if time.Now().Add(imagePollInterval).After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(imagePollInterval):
		}
	}
}

func (a *Automation) captureScreen(ctx context.Context) (*grayImage, error) {
	f, err := os.CreateTemp("", "probe-screen-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create screen capture file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	var candidates [][]string
	switch a.goos {
	case "linux":
		candidates = [][]string{
			{"import", "-window", "root", path},
			{"gnome-screenshot", "-f", path},
			{"scrot", "-o", path},
		}
	case "darwin":
		candidates = [][]string{{"screencapture", "-x", path}}
	default:
		return nil, fmt.Errorf("screen capture not supported on %s", a.goos)
	}

	var lastErr error
	for _, c := range candidates {
		if _, err := a.run(ctx, c[0], c[1:]...); err != nil {
			lastErr = err
			continue
		}
		return loadGray(path)
	}
	return nil, fmt.Errorf("no screen capture tool succeeded: %w", lastErr)
}

func (a *Automation) click(ctx context.Context, x, y int) error {
	switch a.goos {
	case "linux":
		_, err := a.run(ctx, "xdotool", "mousemove", "--sync", strconv.Itoa(x), strconv.Itoa(y), "click", "1")
		return err
	case "darwin":
		_, err := a.run(ctx, "cliclick", fmt.Sprintf("c:%d,%d", x, y))
		return err
	default:
		return fmt.Errorf("mouse click not supported on %s", a.goos)
	}
}

var _ interfaces.WindowAutomation = (*Automation)(nil)
