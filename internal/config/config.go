package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"ratespread/internal/logging"
	"ratespread/internal/series"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Fred      FredConfig      `mapstructure:"fred"`
	Series    SeriesConfig    `mapstructure:"series"`
	Alignment AlignmentConfig `mapstructure:"alignment"`
	Window    WindowConfig    `mapstructure:"window"`
	Output    OutputConfig    `mapstructure:"output"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN
// disables persistence entirely.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// FredConfig covers FRED API access.
type FredConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SeriesConfig names the input series identifiers.
type SeriesConfig struct {
	PMMS               string  `mapstructure:"pmms"`
	Treasury           string  `mapstructure:"treasury"`
	CC30               string  `mapstructure:"cc30"`
	CC30ProxyEnabled   bool    `mapstructure:"cc30_proxy_enabled"`
	CC30ProxyOffsetBps float64 `mapstructure:"cc30_proxy_offset_bps"`
}

// AlignmentConfig governs resampling onto the weekly grid.
type AlignmentConfig struct {
	Weekday    string `mapstructure:"weekday"`
	FillPolicy string `mapstructure:"fill_policy"`
}

// WindowConfig bounds the analysis date range.
type WindowConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// OutputConfig sets artifact destinations.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ScheduleConfig governs the watch command cadence.
type ScheduleConfig struct {
	Weekday      string        `mapstructure:"weekday"`
	At           string        `mapstructure:"at"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines run-summary notification routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATESPREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ratespread")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("fred.request_timeout", "15s")
	v.SetDefault("fred.user_agent", "ratespread/1.0")

	v.SetDefault("series.pmms", "MORTGAGE30US")
	v.SetDefault("series.treasury", "DGS10")
	v.SetDefault("series.cc30", "OBMMIC30YF")
	v.SetDefault("series.cc30_proxy_enabled", true)
	v.SetDefault("series.cc30_proxy_offset_bps", 50.0)

	v.SetDefault("alignment.weekday", "wednesday")
	v.SetDefault("alignment.fill_policy", "ffill")

	v.SetDefault("window.start", "2000-01-01")

	v.SetDefault("output.dir", "out")

	// New PMMS prints land on Thursdays.
	v.SetDefault("schedule.weekday", "thursday")
	v.SetDefault("schedule.at", "16:00")
	v.SetDefault("schedule.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Series.PMMS == "" || c.Series.Treasury == "" {
		return fmt.Errorf("series.pmms and series.treasury must be configured")
	}
	if c.Series.CC30ProxyOffsetBps < 0 {
		return fmt.Errorf("series.cc30_proxy_offset_bps cannot be negative")
	}
	if _, err := series.ParseWeekday(c.Alignment.Weekday); err != nil {
		return fmt.Errorf("alignment.weekday: %w", err)
	}
	if _, err := series.ParseFillPolicy(c.Alignment.FillPolicy); err != nil {
		return fmt.Errorf("alignment.fill_policy: %w", err)
	}
	if _, err := c.WindowStart(); err != nil {
		return err
	}
	if _, err := c.WindowEnd(); err != nil {
		return err
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be configured")
	}
	if _, err := series.ParseWeekday(c.Schedule.Weekday); err != nil {
		return fmt.Errorf("schedule.weekday: %w", err)
	}
	if _, err := c.ScheduleAt(); err != nil {
		return err
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be configured")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be configured")
		}
	}
	return nil
}

// WindowStart parses the configured analysis start date.
func (c *Config) WindowStart() (time.Time, error) {
	if c.Window.Start == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.Window.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("window.start: %w", err)
	}
	return t, nil
}

// WindowEnd parses the configured analysis end date; zero means "today".
func (c *Config) WindowEnd() (time.Time, error) {
	if c.Window.End == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.Window.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("window.end: %w", err)
	}
	return t, nil
}

// ScheduleAt parses the configured time-of-day as an offset from midnight UTC.
func (c *Config) ScheduleAt() (time.Duration, error) {
	if c.Schedule.At == "" {
		return 0, nil
	}
	t, err := time.Parse("15:04", c.Schedule.At)
	if err != nil {
		return 0, fmt.Errorf("schedule.at must be HH:MM: %w", err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
