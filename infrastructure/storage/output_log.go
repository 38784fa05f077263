package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"research_probe/domain/interfaces"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	separatorWidth  = 60
)

// Separator is the fixed-width line delimiting header and output blocks
var Separator = strings.Repeat("=", separatorWidth)

type outputLog struct {
	path    string
	logger  *logrus.Logger
	console io.Writer
	now     func() time.Time

	mu   sync.Mutex
	file *os.File
}

// Option customizes the output log
type Option func(*outputLog)

// WithClock - overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *outputLog) { o.now = now }
}

// WithConsole - overrides where artifact blocks are mirrored
func WithConsole(w io.Writer) Option {
	return func(o *outputLog) { o.console = w }
}

// NewOutputLog - creates the append-only run log at path, mirrored to logger
func NewOutputLog(path string, logger *logrus.Logger, opts ...Option) interfaces.Sink {
	o := &outputLog{
		path:    path,
		logger:  logger,
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin - truncates the log file and writes the run header
func (o *outputLog) Begin(header string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if dir := filepath.Dir(o.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if o.file != nil {
		o.file.Close()
	}

	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output log: %w", err)
	}
	o.file = f

	_, err = fmt.Fprintf(f, "%s - Started %s\n%s\n\n", header, o.now().Format(timestampLayout), Separator)
	return err
}

// Info - appends a progress line
func (o *outputLog) Info(line string) {
	o.append(line, false)
	o.logger.Info(line)
}

// Error - appends an error line
func (o *outputLog) Error(line string) {
	o.append(line, true)
	o.logger.Error(line)
}

func (o *outputLog) append(line string, isError bool) {
	prefix := ""
	if isError {
		prefix = "ERROR: "
	}
	formatted := fmt.Sprintf("[%s] %s%s\n", o.now().Format(timestampLayout), prefix, line)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.file == nil {
		return
	}
	if _, err := o.file.WriteString(formatted); err != nil {
		o.logger.WithError(err).Warn("failed to append to output log")
	}
}

// SaveArtifact - appends a headered output block and renders it on the console
func (o *outputLog) SaveArtifact(header, content string) error {
	title := fmt.Sprintf("%s - %s", header, o.now().Format(timestampLayout))
	block := fmt.Sprintf("\n%s\n%s\n%s\n%s\n%s\n", Separator, title, Separator, content, Separator)

	o.mu.Lock()
	if o.file == nil {
		o.mu.Unlock()
		return fmt.Errorf("output log not started")
	}
	_, err := o.file.WriteString(block)
	o.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	fmt.Fprintln(o.console, renderArtifact(header, content))
	return nil
}

// Path - returns the log file location
func (o *outputLog) Path() string {
	return o.path
}

// Close - flushes and closes the log file
func (o *outputLog) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

var (
	artifactTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	artifactBox   = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func renderArtifact(header, content string) string {
	return artifactBox.Render(artifactTitle.Render(header) + "\n\n" + content)
}
