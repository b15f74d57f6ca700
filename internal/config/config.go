// internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Header  HeaderConfig  `mapstructure:"header" yaml:"header"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File output (rotated by lumberjack). Empty disables the file core.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the CDP session used by the watch command.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// HeaderConfig identifies the observed elements and tunes the sticky
// controller. The breakpoint and debounce defaults match the published
// contract (750 logical pixels, 150 ms).
type HeaderConfig struct {
	Selector       string `mapstructure:"selector" yaml:"selector"`
	GroupSelector  string `mapstructure:"group_selector" yaml:"group_selector"`
	RowSelector    string `mapstructure:"row_selector" yaml:"row_selector"`
	MenuSelector   string `mapstructure:"menu_selector" yaml:"menu_selector"`
	DrawerSelector string `mapstructure:"drawer_selector" yaml:"drawer_selector"`

	MobileBreakpoint float64       `mapstructure:"mobile_breakpoint" yaml:"mobile_breakpoint"`
	HideDebounce     time.Duration `mapstructure:"hide_debounce" yaml:"hide_debounce"`
	FrameInterval    time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	// ScrollSampleHz caps how many scroll samples per second the bridge
	// forwards from the page. Zero means unlimited.
	ScrollSampleHz float64 `mapstructure:"scroll_sample_hz" yaml:"scroll_sample_hz"`
}

const (
	// DefaultMobileBreakpoint separates the mobile and desktop viewport
	// classes.
	DefaultMobileBreakpoint = 750.0
	// DefaultHideDebounce is the quiet period before a downward-scroll burst
	// settles into the idle state.
	DefaultHideDebounce = 150 * time.Millisecond
	// DefaultFrameInterval approximates one render commit at 60 Hz for the
	// wall-clock scheduler.
	DefaultFrameInterval = 16 * time.Millisecond
)

// SetDefaults registers every configuration default on the given viper
// instance. Call before Unmarshal so partial config files work.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "headerkit")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)

	v.SetDefault("header.selector", "header")
	v.SetDefault("header.group_selector", ".header-group")
	v.SetDefault("header.row_selector", ".header-row")
	v.SetDefault("header.menu_selector", ".header-menu")
	v.SetDefault("header.drawer_selector", ".header-drawer")
	v.SetDefault("header.mobile_breakpoint", DefaultMobileBreakpoint)
	v.SetDefault("header.hide_debounce", DefaultHideDebounce)
	v.SetDefault("header.frame_interval", DefaultFrameInterval)
	v.SetDefault("header.scroll_sample_hz", 120.0)
}

// Load reads configuration from the given file (or the default search path
// when empty), layering environment variables with the HEADERKIT prefix.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".headerkit"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("HEADERKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or the
// environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}
