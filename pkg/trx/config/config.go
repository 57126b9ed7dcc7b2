package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultBindAddr   = "127.0.0.1"
	DefaultDataPort   = 5702
	DefaultRemoteAddr = "127.0.0.1"
	DefaultRemotePort = 6702
	DefaultRSSI       = -60
)

type Config struct {
	BindAddr        string        `yaml:"bind_addr"`
	DataPort        int           `yaml:"data_port"`
	RemoteAddr      string        `yaml:"remote_addr"`
	RemoteDataPort  int           `yaml:"remote_data_port"`
	Channel         Channel       `yaml:"channel"`
	CaptureLocation string        `yaml:"capture_location"`
	LogLevel        string        `yaml:"log_level"`
	StatsInterval   time.Duration `yaml:"stats_interval"`
	StatusServer    struct {
		Port int `yaml:"port"`
	} `yaml:"status_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

// Channel configures the simulated radio channel.
type Channel struct {
	RSSI       *float64 `yaml:"rssi"`
	RSSIJitter float64  `yaml:"rssi_jitter"`
	ToA        float64  `yaml:"toa"`
	ToAJitter  float64  `yaml:"toa_jitter"`
}

func (c *Config) LocalDataAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.DataPort)
}

func (c *Config) RemoteDataAddr() string {
	return fmt.Sprintf("%s:%d", c.RemoteAddr, c.RemoteDataPort)
}

// BaseRSSI returns the configured mean RSSI, or DefaultRSSI when unset.
func (c *Channel) BaseRSSI() float64 {
	if c.RSSI == nil {
		return DefaultRSSI
	}
	return *c.RSSI
}

func (c *Config) applyDefaults() {
	if c.BindAddr == "" {
		c.BindAddr = DefaultBindAddr
	}
	if c.DataPort == 0 {
		c.DataPort = DefaultDataPort
	}
	if c.RemoteAddr == "" {
		c.RemoteAddr = DefaultRemoteAddr
	}
	if c.RemoteDataPort == 0 {
		c.RemoteDataPort = DefaultRemotePort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = 10 * time.Second
	}
}

func Parse(contents []byte) (*Config, error) {
	var opts Config
	if err := yaml.Unmarshal(contents, &opts); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	return &opts, nil
}

func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(contents)
}
