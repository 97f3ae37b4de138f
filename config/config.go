// Ininicializing common application configuration
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
}

type ServerConfig struct {
	AppVersion  string        `mapstructure:"app_version"`
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Env         string        `mapstructure:"environment"`
	Mode        string        `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig describes the temp area where filtered artifacts live for the
// duration of a single request.
type StorageConfig struct {
	Dir           string        `mapstructure:"dir"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

type FilterConfig struct {
	Width     int   `mapstructure:"width"`
	Height    int   `mapstructure:"height"`
	Quality   int   `mapstructure:"quality"`
	Grayscale bool  `mapstructure:"grayscale"`
	MaxPixels int64 `mapstructure:"max_pixels"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

const DefaultPort = "8082"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.level", "info")

	v.SetDefault("storage.dir", filepath.Join(os.TempDir(), "image-filter"))
	v.SetDefault("storage.sweep_interval", 10*time.Minute)
	v.SetDefault("storage.max_age", 15*time.Minute)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_bytes", 20<<20)

	v.SetDefault("filter.width", 256)
	v.SetDefault("filter.height", 256)
	v.SetDefault("filter.quality", 60)
	v.SetDefault("filter.grayscale", true)
	v.SetDefault("filter.max_pixels", 40_000_000)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "image-filter-events")
}

// LoadConfig reads ./config/config.yaml when present. A missing file is not an
// error: defaults plus environment overrides are enough to run the service.
func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()
	// PORT is the conventional variable for the listening port
	if err := viperInstance.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, err
	}

	err := viperInstance.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, err
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	return &c, nil
}
