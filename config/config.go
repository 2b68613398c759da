package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

type Config struct {
	Location LocationConfig `mapstructure:"location"`
	Sun      SunConfig      `mapstructure:"sun"`
	Display  DisplayConfig  `mapstructure:"display"`
	API      APIConfig      `mapstructure:"api"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Log      LogConfig      `mapstructure:"log"`
}

// LocationConfig decides where coordinates come from and whether access
// is granted without asking.
type LocationConfig struct {
	Provider   string  `mapstructure:"provider"`
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	IPEndpoint string  `mapstructure:"ip_endpoint"`
	AutoGrant  bool    `mapstructure:"auto_grant"`
}

type SunConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DisplayConfig struct {
	Timezone     string        `mapstructure:"timezone"`
	TimeFormat   string        `mapstructure:"time_format"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("location.provider", "static")
	v.SetDefault("location.latitude", 0)
	v.SetDefault("location.longitude", 0)
	v.SetDefault("location.ip_endpoint", "https://ipapi.co/json/")
	v.SetDefault("location.auto_grant", false)
	v.SetDefault("sun.provider", "sunrise-sunset")
	v.SetDefault("sun.base_url", "")
	v.SetDefault("sun.api_key", "")
	v.SetDefault("sun.timeout", "10s")
	v.SetDefault("display.timezone", "Local")
	v.SetDefault("display.time_format", "15:04")
	v.SetDefault("display.tick_interval", "1s")
	v.SetDefault("api.port", 8045)
	v.SetDefault("api.enabled", true)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "golden_hour")
	v.SetDefault("mqtt.client_id", "golden-hour")
	v.SetDefault("log.debug", false)
}

// Load reads configPath, or config.yaml from the working directory or
// /etc/golden-hour. A missing file is not an error; defaults apply.
// GOLDEN_HOUR_* environment variables override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/golden-hour")
	}
	v.SetEnvPrefix("golden_hour")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Display.TickInterval <= 0 {
		return fmt.Errorf("display.tick_interval must be positive, got %s", c.Display.TickInterval)
	}
	if c.Sun.Timeout <= 0 {
		return fmt.Errorf("sun.timeout must be positive, got %s", c.Sun.Timeout)
	}
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

// SaveLocation writes the location section back to configPath
// (config.yaml when empty), keeping the rest of the file.
func SaveLocation(configPath string, loc LocationConfig) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	v.Set("location.provider", loc.Provider)
	v.Set("location.latitude", loc.Latitude)
	v.Set("location.longitude", loc.Longitude)
	v.Set("location.ip_endpoint", loc.IPEndpoint)
	v.Set("location.auto_grant", loc.AutoGrant)

	return v.WriteConfigAs(configPath)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
