// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"

	"thingspeak-uploader/internal/channel"
	"thingspeak-uploader/internal/transport"
)

// API describes how to reach the update endpoint.
type API struct {
	Host      string        `yaml:"host"`
	Transport string        `yaml:"transport"`
	Port      int           `yaml:"port"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Channel is one channel definition as written in the file.
type Channel struct {
	Name     string   `yaml:"name"`
	WriteKey string   `yaml:"write_key"`
	Fields   []string `yaml:"fields"`
}

// Loop configures the sensor loop of the run command.
type Loop struct {
	Channel          string `yaml:"channel"`
	Sensor           string `yaml:"sensor"`
	Seed             int64  `yaml:"seed"`
	TemperatureField string `yaml:"temperature_field"`
	HumidityField    string `yaml:"humidity_field"`
	MaxReadFailures  int    `yaml:"max_read_failures"`
}

// Greptime configures the optional GreptimeDB mirror.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Mirror lists where send records are copied to.
type Mirror struct {
	File     string   `yaml:"file"`
	Greptime Greptime `yaml:"greptime"`
}

// Admin configures the status/metrics HTTP server.
type Admin struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	API      API       `yaml:"api"`
	Log      bool      `yaml:"log"`
	Channels []Channel `yaml:"channels"`
	Loop     Loop      `yaml:"loop"`
	Mirror   Mirror    `yaml:"mirror"`
	Admin    Admin     `yaml:"admin"`
}

// Defaults returns the values used for every setting the file leaves empty.
func Defaults() Config {
	return Config{
		API: API{
			Host:      transport.DefaultHost,
			Transport: transport.KindHTTPS,
			Timeout:   30 * time.Second,
		},
		Loop: Loop{
			Sensor:           "simulated",
			Seed:             1,
			TemperatureField: "Temperature",
			HumidityField:    "Humidity",
		},
		Mirror: Mirror{
			Greptime: Greptime{Database: "public"},
		},
		Admin: Admin{Addr: ":8080"},
	}
}

// Load reads, validates and completes the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	if err := ValidateBytes(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if env := os.Getenv("GREPTIMEDB_ENDPOINT"); env != "" {
		cfg.Mirror.Greptime.Endpoint = env
	}
	if cfg.Loop.Channel == "" && len(cfg.Channels) > 0 {
		cfg.Loop.Channel = cfg.Channels[0].Name
	}
	if _, err := cfg.Registry(); err != nil {
		return nil, err
	}
	if !cfg.hasChannel(cfg.Loop.Channel) {
		return nil, fmt.Errorf("loop channel %q is not configured", cfg.Loop.Channel)
	}
	return &cfg, nil
}

func (c *Config) hasChannel(name string) bool {
	for _, ch := range c.Channels {
		if ch.Name == name {
			return true
		}
	}
	return false
}

// Registry builds the channel registry.
func (c *Config) Registry() (*channel.Registry, error) {
	chs := make([]channel.Channel, 0, len(c.Channels))
	for _, ch := range c.Channels {
		chs = append(chs, channel.New(ch.Name, ch.WriteKey, ch.Fields...))
	}
	return channel.NewRegistry(chs...)
}

// Transport builds the configured transport variant.
func (c *Config) Transport(log *slog.Logger) (transport.Transport, error) {
	return transport.New(c.API.Transport, transport.Config{
		Host:    c.API.Host,
		Port:    c.API.Port,
		Timeout: c.API.Timeout,
		Logger:  log,
	})
}
