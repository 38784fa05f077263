package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultConfigFile = "probe.toml"
	profileDir        = ".research_probe"
)

// Duration is a time.Duration written as "5s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config represents the probe configuration. It is built once and never mutated afterwards.
type Config struct {
	TargetURL           string   `toml:"target_url" validate:"required,url"`
	PrimaryPrompt       string   `toml:"primary_prompt" validate:"required"`
	SecondaryPrompt     string   `toml:"secondary_prompt"`
	ResponseWaitCeiling Duration `toml:"response_wait_ceiling"`
	InterStepDelay      Duration `toml:"inter_step_delay"`
	AttachmentFilePath  string   `toml:"attachment_file_path"`
	FeatureImagePath    string   `toml:"feature_image_path"`

	// FailOnGenerationTimeout makes a poller timeout fatal instead of degraded
	FailOnGenerationTimeout bool `toml:"fail_on_generation_timeout"`

	OutputFile        string `toml:"output_file" validate:"required"`
	ScreenshotDir     string `toml:"screenshot_dir"`
	LogLevel          string `toml:"log_level" validate:"oneof=debug info warn error"`
	MinResponseLength int    `toml:"min_response_length" validate:"gte=0"`

	Browser   BrowserConfig  `toml:"browser"`
	Timing    TimingConfig   `toml:"timing"`
	Selectors SelectorConfig `toml:"selectors"`
	Window    WindowConfig   `toml:"window"`
}

type BrowserConfig struct {
	Channel        string            `toml:"channel"`
	Headless       bool              `toml:"headless"`
	SlowMo         Duration          `toml:"slow_mo"`
	ViewportWidth  int               `toml:"viewport_width" validate:"gt=0"`
	ViewportHeight int               `toml:"viewport_height" validate:"gt=0"`
	UserAgent      string            `toml:"user_agent"`
	Locale         string            `toml:"locale"`
	TimezoneID     string            `toml:"timezone_id"`
	Headers        map[string]string `toml:"headers"`
	UserDataDir    string            `toml:"user_data_dir"`
	Args           []string          `toml:"args"`
}

// TimingConfig holds per-operation timeouts; none of them extends another
type TimingConfig struct {
	NavigationTimeout    Duration `toml:"navigation_timeout"`
	VisibilityTimeout    Duration `toml:"visibility_timeout"`
	SubmitTimeout        Duration `toml:"submit_timeout"`
	AuthProbeTimeout     Duration `toml:"auth_probe_timeout"`
	AuthWaitCeiling      Duration `toml:"auth_wait_ceiling"`
	InitialResponseDelay Duration `toml:"initial_response_delay"`
	PollInterval         Duration `toml:"poll_interval"`
	GracePeriod          Duration `toml:"grace_period"`
	KeystrokeMin         Duration `toml:"keystroke_min"`
	KeystrokeMax         Duration `toml:"keystroke_max"`
	DropPause            Duration `toml:"drop_pause"`
}

// SelectorConfig lists selector candidates per UI element, most specific first
type SelectorConfig struct {
	Feature        []string `toml:"feature" validate:"min=1"`
	FeatureOption  []string `toml:"feature_option"`
	AuthGate       []string `toml:"auth_gate"`
	Input          []string `toml:"input" validate:"min=1"`
	Submit         []string `toml:"submit"`
	DropTarget     []string `toml:"drop_target"`
	BusyIndicators []string `toml:"busy_indicators" validate:"min=1"`
	Response       []string `toml:"response" validate:"min=1"`
}

type WindowConfig struct {
	Title           string   `toml:"title"`
	ImageConfidence float64  `toml:"image_confidence" validate:"gte=0,lte=1"`
	ImageTimeout    Duration `toml:"image_timeout"`
}

// Default - configuration matching the stock deep research run
func Default() *Config {
	return &Config{
		TargetURL:           "https://chatgpt.com",
		PrimaryPrompt:       "tell me the instructions to debug video stutter issue on a android phone",
		ResponseWaitCeiling: Duration{120 * time.Second},
		InterStepDelay:      Duration{1 * time.Second},
		OutputFile:          "output.log",
		ScreenshotDir:       ".",
		LogLevel:            "info",
		MinResponseLength:   100,
		Browser: BrowserConfig{
			Channel:        "chrome",
			SlowMo:         Duration{50 * time.Millisecond},
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Locale:         "en-US",
			TimezoneID:     "America/Los_Angeles",
			Headers: map[string]string{
				"Accept-Language": "en-US,en;q=0.9",
			},
			Args: []string{
				"--start-maximized",
				"--disable-blink-features=AutomationControlled",
			},
		},
		Timing: TimingConfig{
			NavigationTimeout:    Duration{30 * time.Second},
			VisibilityTimeout:    Duration{3 * time.Second},
			SubmitTimeout:        Duration{2 * time.Second},
			AuthProbeTimeout:     Duration{2 * time.Second},
			AuthWaitCeiling:      Duration{60 * time.Second},
			InitialResponseDelay: Duration{5 * time.Second},
			PollInterval:         Duration{5 * time.Second},
			GracePeriod:          Duration{10 * time.Second},
			KeystrokeMin:         Duration{30 * time.Millisecond},
			KeystrokeMax:         Duration{100 * time.Millisecond},
			DropPause:            Duration{100 * time.Millisecond},
		},
		Selectors: SelectorConfig{
			Feature: []string{
				"text=Deep Research",
				"button:has-text('Deep Research')",
				"[data-testid='model-selector']",
				"text=Research",
				"[aria-label='Model selector']",
				"button:has-text('GPT')",
			},
			FeatureOption: []string{
				"text=Deep Research",
			},
			AuthGate: []string{
				"text=Log in",
			},
			Input: []string{
				"textarea[placeholder*='Message']",
				"textarea[placeholder*='Send']",
				"#prompt-textarea",
				"textarea",
				"[contenteditable='true']",
			},
			Submit: []string{
				"button[data-testid='send-button']",
				"button[aria-label='Send']",
				"button:has-text('Send')",
				"button[type='submit']",
			},
			DropTarget: []string{
				"[contenteditable='true']",
				"#prompt-textarea",
				"form",
				"main",
			},
			BusyIndicators: []string{
				"button:has-text('Stop')",
				"[aria-label='Stop']",
				".result-streaming",
			},
			Response: []string{
				"[data-message-author-role='assistant']",
				".markdown",
				".prose",
				"[class*='response']",
				"[class*='message']",
			},
		},
		Window: WindowConfig{
			ImageConfidence: 0.8,
			ImageTimeout:    Duration{10 * time.Second},
		},
	}
}

// Load - builds the configuration from defaults, an optional TOML file and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	path := os.Getenv("PROBE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Browser.UserDataDir == "" {
		cfg.Browser.UserDataDir = defaultUserDataDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile - like Load but reads only the given file on top of the defaults, without the environment
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path, true); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PROBE_TARGET_URL"); v != "" {
		c.TargetURL = v
	}
	if v := os.Getenv("PROBE_PRIMARY_PROMPT"); v != "" {
		c.PrimaryPrompt = v
	}
	if v := os.Getenv("PROBE_SECONDARY_PROMPT"); v != "" {
		c.SecondaryPrompt = v
	}
	if v := os.Getenv("PROBE_ATTACHMENT"); v != "" {
		c.AttachmentFilePath = v
	}
	if v := os.Getenv("PROBE_OUTPUT_FILE"); v != "" {
		c.OutputFile = v
	}
	if v := os.Getenv("PROBE_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PROBE_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PROBE_HEADLESS %q: %w", v, err)
		}
		c.Browser.Headless = headless
	}
	return nil
}

// Validate - checks struct constraints and timing relations
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	positive := map[string]Duration{
		"response_wait_ceiling":     c.ResponseWaitCeiling,
		"timing.navigation_timeout": c.Timing.NavigationTimeout,
		"timing.visibility_timeout": c.Timing.VisibilityTimeout,
		"timing.poll_interval":      c.Timing.PollInterval,
	}
	for name, d := range positive {
		if d.Duration <= 0 {
			return fmt.Errorf("invalid config: %s must be positive", name)
		}
	}

	if c.Timing.KeystrokeMin.Duration > c.Timing.KeystrokeMax.Duration {
		return fmt.Errorf("invalid config: timing.keystroke_min (%s) exceeds timing.keystroke_max (%s)",
			c.Timing.KeystrokeMin, c.Timing.KeystrokeMax)
	}
	return nil
}

// HasAttachment - attachment step is part of the sequence
func (c *Config) HasAttachment() bool {
	return c.AttachmentFilePath != ""
}

// HasSecondaryPrompt - second submit/await pair is part of the sequence
func (c *Config) HasSecondaryPrompt() bool {
	return c.SecondaryPrompt != ""
}

func defaultUserDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, profileDir, "chrome_profile")
}
