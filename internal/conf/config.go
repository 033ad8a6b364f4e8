// Package conf loads triggerkit settings from a YAML file and TRIGGERKIT_*
// environment variables.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/netwatch-oss/triggerkit/internal/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// TRIGGERKIT_CLIENT_BASE_URL.
const EnvPrefix = "TRIGGERKIT"

// Settings is the complete configuration.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server" yaml:"server" json:"server"`
	Database DatabaseSettings `mapstructure:"database" yaml:"database" json:"database"`
	Client   ClientSettings   `mapstructure:"client" yaml:"client" json:"client"`
	Log      LogSettings      `mapstructure:"log" yaml:"log" json:"log"`
	MQTT     MQTTSettings     `mapstructure:"mqtt" yaml:"mqtt" json:"mqtt"`
	Notify   NotifySettings   `mapstructure:"notify" yaml:"notify" json:"notify"`
}

// ServerSettings configures the reference API server.
type ServerSettings struct {
	Listen string `mapstructure:"listen" yaml:"listen" json:"listen"`
	// Token, when set, is required as a bearer credential on write routes.
	Token           string   `mapstructure:"token" yaml:"token" json:"-"`
	ShutdownTimeout Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	Metrics         bool     `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// DatabaseSettings selects the server's storage.
type DatabaseSettings struct {
	// Driver is "sqlite" or "mysql".
	Driver       string   `mapstructure:"driver" yaml:"driver" json:"driver"`
	DSN          string   `mapstructure:"dsn" yaml:"dsn" json:"-"`
	MaxOpenConns int      `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLife  Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	Debug        bool     `mapstructure:"debug" yaml:"debug" json:"debug"`
}

// ClientSettings configures the HTTP store used by the CLI.
type ClientSettings struct {
	BaseURL      string   `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Token        string   `mapstructure:"token" yaml:"token" json:"-"`
	Timeout      Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	ItemCacheTTL Duration `mapstructure:"item_cache_ttl" yaml:"item_cache_ttl" json:"item_cache_ttl"`
	UserName     string   `mapstructure:"user_name" yaml:"user_name" json:"user_name"`
	UserRole     string   `mapstructure:"user_role" yaml:"user_role" json:"user_role"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level      string `mapstructure:"level" yaml:"level" json:"level"`
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// MQTTSettings configures trigger change publication.
type MQTTSettings struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Broker   string   `mapstructure:"broker" yaml:"broker" json:"broker"`
	ClientID string   `mapstructure:"client_id" yaml:"client_id" json:"client_id"`
	Username string   `mapstructure:"username" yaml:"username" json:"username"`
	Password string   `mapstructure:"password" yaml:"password" json:"-"`
	Topic    string   `mapstructure:"topic" yaml:"topic" json:"topic"`
	QoS      byte     `mapstructure:"qos" yaml:"qos" json:"qos"`
	Retain   bool     `mapstructure:"retain" yaml:"retain" json:"retain"`
	Timeout  Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// NotifySettings configures human-readable change notifications.
type NotifySettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// URLs are shoutrrr service URLs, e.g. ntfy://ntfy.sh/ops-triggers.
	URLs  []string `mapstructure:"urls" yaml:"urls" json:"-"`
	Title string   `mapstructure:"title" yaml:"title" json:"title"`
	// Actions limits notifications to these change actions; empty means all.
	Actions []string `mapstructure:"actions" yaml:"actions" json:"actions"`
}

// setDefaults registers every default on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":3000")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.metrics", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "triggerkit.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("client.base_url", "http://127.0.0.1:3000")
	v.SetDefault("client.timeout", "15s")
	v.SetDefault("client.item_cache_ttl", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.client_id", "triggerkit")
	v.SetDefault("mqtt.topic", "triggerkit/triggers")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.timeout", "5s")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.title", "triggerkit")
	v.SetDefault("notify.urls", []string{})
}

// NewViper returns a viper instance with defaults and environment binding.
// configFile may be empty, in which case ./triggerkit.yaml and
// $HOME/.config/triggerkit/triggerkit.yaml are searched.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("triggerkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/triggerkit")
	}
	return v
}

// Load reads configuration into Settings. A missing default config file is
// not an error; a missing explicit one is.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("failed to read config: %w", err)).
				Component("conf").
				Category(errors.CategoryConfig).
				Build()
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, errors.New(fmt.Errorf("failed to decode config: %w", err)).
			Component("conf").
			Category(errors.CategoryConfig).
			Build()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values that cannot be defaulted.
func (s *Settings) Validate() error {
	var errs []error
	switch s.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or mysql, got %q", s.Database.Driver))
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		errs = append(errs, fmt.Errorf("mqtt.broker is required when mqtt is enabled"))
	}
	if s.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2"))
	}
	if s.Notify.Enabled && len(s.Notify.URLs) == 0 {
		errs = append(errs, fmt.Errorf("notify.urls is required when notify is enabled"))
	}
	if s.Client.Timeout.Std() < 0 || s.Client.ItemCacheTTL.Std() < 0 {
		errs = append(errs, fmt.Errorf("client durations must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.New(errors.Join(errs...)).
		Component("conf").
		Category(errors.CategoryConfig).
		Build()
}

// DefaultShutdownTimeout is used when server.shutdown_timeout is zero.
const DefaultShutdownTimeout = 10 * time.Second
