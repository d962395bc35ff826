// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Components depend on this rather than the concrete struct so tests can hand
// them a trimmed config.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Planner() PlannerConfig
	Guidance() GuidanceConfig
	Executor() ExecutorConfig
	Loop() LoopConfig
	Artifacts() ArtifactsConfig
	Database() DatabaseConfig
	Oracle() OracleConfig

	SetExecutorMode(mode string)
	SetBrowserStartURL(u string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	PlannerCfg   PlannerConfig   `mapstructure:"planner" yaml:"planner"`
	GuidanceCfg  GuidanceConfig  `mapstructure:"guidance" yaml:"guidance"`
	ExecutorCfg  ExecutorConfig  `mapstructure:"executor" yaml:"executor"`
	LoopCfg      LoopConfig      `mapstructure:"loop" yaml:"loop"`
	ArtifactsCfg ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	DatabaseCfg  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	OracleCfg    OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Planner() PlannerConfig     { return c.PlannerCfg }
func (c *Config) Guidance() GuidanceConfig   { return c.GuidanceCfg }
func (c *Config) Executor() ExecutorConfig   { return c.ExecutorCfg }
func (c *Config) Loop() LoopConfig           { return c.LoopCfg }
func (c *Config) Artifacts() ArtifactsConfig { return c.ArtifactsCfg }
func (c *Config) Database() DatabaseConfig   { return c.DatabaseCfg }
func (c *Config) Oracle() OracleConfig       { return c.OracleCfg }

func (c *Config) SetExecutorMode(mode string) { c.ExecutorCfg.Mode = mode }
func (c *Config) SetBrowserStartURL(u string) { c.BrowserCfg.StartURL = u }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig describes how to reach the already-running browser.
type BrowserConfig struct {
	// DebuggerURL is the remote debugging endpoint of a browser started with
	// --remote-debugging-port.
	DebuggerURL   string        `mapstructure:"debugger_url" yaml:"debugger_url"`
	AttachTimeout time.Duration `mapstructure:"attach_timeout" yaml:"attach_timeout"`
	AttachRetries int           `mapstructure:"attach_retries" yaml:"attach_retries"`
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// StartURL, when set, is loaded into the attached tab before the first cycle.
	StartURL          string        `mapstructure:"start_url" yaml:"start_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// PlannerConfig configures the client side of the planning oracle.
type PlannerConfig struct {
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	IncludeScreenshot bool          `mapstructure:"include_screenshot" yaml:"include_screenshot"`
	// RateLimit caps oracle calls per second. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// GuidanceConfig covers both ends of the guidance channel: the client used in
// guided mode and the overlay server.
type GuidanceConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Margin         float64       `mapstructure:"margin" yaml:"margin"`
	// OperatorTimeout bounds the wait for the human. Zero waits indefinitely.
	OperatorTimeout time.Duration `mapstructure:"operator_timeout" yaml:"operator_timeout"`

	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ScreenWidth    int           `mapstructure:"screen_width" yaml:"screen_width"`
	ScreenHeight   int           `mapstructure:"screen_height" yaml:"screen_height"`
}

// ExecutorConfig holds the interaction settle delays and the execution mode.
type ExecutorConfig struct {
	Mode           string         `mapstructure:"mode" yaml:"mode"`
	HighlightPause time.Duration  `mapstructure:"highlight_pause" yaml:"highlight_pause"`
	ClickSettle    time.Duration  `mapstructure:"click_settle" yaml:"click_settle"`
	TypeSettle     time.Duration  `mapstructure:"type_settle" yaml:"type_settle"`
	ConfirmSettle  time.Duration  `mapstructure:"confirm_settle" yaml:"confirm_settle"`
	WaitInterval   time.Duration  `mapstructure:"wait_interval" yaml:"wait_interval"`
	ConfirmKey     string         `mapstructure:"confirm_key" yaml:"confirm_key"`
	ScrollDelta    float64        `mapstructure:"scroll_delta" yaml:"scroll_delta"`
	Humanoid       HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// LoopConfig bounds the sense/think/act loop.
type LoopConfig struct {
	MaxSteps         int           `mapstructure:"max_steps" yaml:"max_steps"`
	MaxEmptyPlans    int           `mapstructure:"max_empty_plans" yaml:"max_empty_plans"`
	EmptyPlanBackoff time.Duration `mapstructure:"empty_plan_backoff" yaml:"empty_plan_backoff"`
	CycleDelay       time.Duration `mapstructure:"cycle_delay" yaml:"cycle_delay"`
}

// ArtifactsConfig controls the per-cycle diagnostic dumps.
type ArtifactsConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir          string `mapstructure:"dir" yaml:"dir"`
	PageMapFile  string `mapstructure:"page_map_file" yaml:"page_map_file"`
	SnapshotFile string `mapstructure:"snapshot_file" yaml:"snapshot_file"`
}

// DatabaseConfig holds the database connection details for the run journal.
// An empty URL disables journaling.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// OracleConfig configures the bundled planning oracle server.
type OracleConfig struct {
	ListenAddr  string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Execution modes.
const (
	ModeDirect = "direct"
	ModeGuided = "guided"
)

// Oracle providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewDefaultConfig creates a new configuration object populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only trips on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pathfinder")
	v.SetDefault("logger.log_file", "pathfinder.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.debugger_url", "http://localhost:9222")
	v.SetDefault("browser.attach_timeout", "10s")
	v.SetDefault("browser.attach_retries", 3)
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.navigation_timeout", "30s")

	// -- Planner --
	v.SetDefault("planner.endpoint", "http://localhost:8000/generate-steps")
	v.SetDefault("planner.timeout", "60s")
	v.SetDefault("planner.include_screenshot", true)
	v.SetDefault("planner.rate_limit", 0)
	v.SetDefault("planner.burst", 1)

	// -- Guidance --
	v.SetDefault("guidance.url", "http://localhost:3000")
	v.SetDefault("guidance.request_timeout", "2s")
	v.SetDefault("guidance.margin", 10)
	v.SetDefault("guidance.operator_timeout", "0s")
	v.SetDefault("guidance.listen_addr", ":3000")
	v.SetDefault("guidance.max_connections", 64)
	v.SetDefault("guidance.poll_interval", "50ms")
	v.SetDefault("guidance.screen_width", 1920)
	v.SetDefault("guidance.screen_height", 1080)

	// -- Executor --
	v.SetDefault("executor.mode", ModeDirect)
	v.SetDefault("executor.highlight_pause", "200ms")
	v.SetDefault("executor.click_settle", "1s")
	v.SetDefault("executor.type_settle", "500ms")
	v.SetDefault("executor.confirm_settle", "200ms")
	v.SetDefault("executor.wait_interval", "2s")
	v.SetDefault("executor.confirm_key", "Tab")
	v.SetDefault("executor.scroll_delta", 600)
	setHumanoidDefaults(v)

	// -- Loop --
	v.SetDefault("loop.max_steps", 20)
	v.SetDefault("loop.max_empty_plans", 5)
	v.SetDefault("loop.empty_plan_backoff", "2s")
	v.SetDefault("loop.cycle_delay", "1s")

	// -- Artifacts --
	v.SetDefault("artifacts.enabled", true)
	v.SetDefault("artifacts.dir", ".")
	v.SetDefault("artifacts.page_map_file", "page_map.json")
	v.SetDefault("artifacts.snapshot_file", "agent_view.png")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Oracle --
	v.SetDefault("oracle.listen_addr", ":8000")
	v.SetDefault("oracle.provider", ProviderGemini)
	v.SetDefault("oracle.model", "gemini-2.5-flash")
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.timeout", "60s")
}

// NewConfigFromViper unmarshals, expands, and validates a configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("oracle.api_key", "PATHFINDER_ORACLE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("database.url", "PATHFINDER_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves "~" in filesystem settings.
func (c *Config) expandPaths() error {
	dir, err := homedir.Expand(c.ArtifactsCfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to expand artifacts.dir: %w", err)
	}
	c.ArtifactsCfg.Dir = dir

	if c.LoggerCfg.LogFile != "" {
		logFile, err := homedir.Expand(c.LoggerCfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to expand logger.log_file: %w", err)
		}
		c.LoggerCfg.LogFile = logFile
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.PlannerCfg.Validate(); err != nil {
		return fmt.Errorf("planner configuration invalid: %w", err)
	}
	if err := c.ExecutorCfg.Validate(); err != nil {
		return fmt.Errorf("executor configuration invalid: %w", err)
	}
	if c.LoopCfg.MaxSteps <= 0 {
		return errors.New("loop.max_steps must be a positive integer")
	}
	if c.LoopCfg.MaxEmptyPlans <= 0 {
		return errors.New("loop.max_empty_plans must be a positive integer")
	}
	if c.GuidanceCfg.PollInterval <= 0 {
		return errors.New("guidance.poll_interval must be positive")
	}
	if c.GuidanceCfg.ScreenWidth <= 0 || c.GuidanceCfg.ScreenHeight <= 0 {
		return errors.New("guidance.screen_width and guidance.screen_height must be positive")
	}
	switch c.OracleCfg.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("oracle.provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.OracleCfg.Provider)
	}
	return nil
}

// Validate checks the browser attachment settings.
func (b *BrowserConfig) Validate() error {
	if _, err := parseHTTPURL(b.DebuggerURL); err != nil {
		return fmt.Errorf("debugger_url: %w", err)
	}
	if b.AttachRetries < 0 {
		return errors.New("attach_retries cannot be negative")
	}
	if b.StartURL != "" {
		if _, err := parseHTTPURL(b.StartURL); err != nil {
			return fmt.Errorf("start_url: %w", err)
		}
	}
	return nil
}

// Validate checks the oracle client settings.
func (p *PlannerConfig) Validate() error {
	if _, err := parseHTTPURL(p.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if p.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if p.RateLimit < 0 {
		return errors.New("rate_limit cannot be negative")
	}
	return nil
}

// Validate checks the execution mode.
func (e *ExecutorConfig) Validate() error {
	switch strings.ToLower(e.Mode) {
	case ModeDirect, ModeGuided:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDirect, ModeGuided, e.Mode)
	}
	if e.ConfirmKey == "" {
		return errors.New("confirm_key cannot be empty")
	}
	return nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q has no host", raw)
	}
	return u, nil
}
