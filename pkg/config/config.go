// Package config 提供配置加载功能
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// 传输方式
const (
	TransportIPC       = "ipc"
	TransportWebSocket = "websocket"
)

var (
	ErrMissingClientID  = errors.New("discord.client_id is required")
	ErrInvalidTransport = errors.New("discord.transport must be ipc or websocket")
	ErrMissingSecret    = errors.New("host.jwt_secret is required unless host.dev_mode is set")
)

// Config presenced 配置
type Config struct {
	Discord  DiscordConfig  `yaml:"discord" envPrefix:"DISCORD_"`
	Presence PresenceConfig `yaml:"presence" envPrefix:"PRESENCE_"`
	Host     HostConfig     `yaml:"host" envPrefix:"HOST_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

// DiscordConfig Discord RPC 配置
type DiscordConfig struct {
	ClientID         string        `yaml:"client_id" env:"CLIENT_ID"`
	Transport        string        `yaml:"transport" env:"TRANSPORT"`
	RegisterProtocol bool          `yaml:"register_protocol" env:"REGISTER_PROTOCOL"`
	DialTimeout      time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
}

// PresenceConfig 状态展示配置
type PresenceConfig struct {
	Locale      string `yaml:"locale" env:"LOCALE"`
	ShowElapsed bool   `yaml:"show_elapsed" env:"SHOW_ELAPSED"`
}

// HostConfig 宿主通道配置
type HostConfig struct {
	Addr             string        `yaml:"addr" env:"ADDR"`
	HealthAddr       string        `yaml:"health_addr" env:"HEALTH_ADDR"`
	JWTSecret        string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	DevMode          bool          `yaml:"dev_mode" env:"DEV_MODE"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	SendChSize       int           `yaml:"send_ch_size" env:"SEND_CH_SIZE"`
	EventQueueSize   int           `yaml:"event_queue_size" env:"EVENT_QUEUE_SIZE"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			ClientID:    "707949124724457502",
			Transport:   TransportIPC,
			DialTimeout: 5 * time.Second,
		},
		Presence: PresenceConfig{
			Locale: "ru",
		},
		Host: HostConfig{
			Addr:             "127.0.0.1:29450",
			HealthAddr:       "127.0.0.1:29451",
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     5 * time.Second,
			SendChSize:       64,
			EventQueueSize:   128,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load 加载配置：默认值 → YAML 文件 → PRESENCED_* 环境变量
// path 为空时跳过文件
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "PRESENCED_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Discord.ClientID == "" {
		return ErrMissingClientID
	}
	switch c.Discord.Transport {
	case TransportIPC, TransportWebSocket:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Discord.Transport)
	}
	if c.Host.JWTSecret == "" && !c.Host.DevMode {
		return ErrMissingSecret
	}
	if c.Host.SendChSize <= 0 {
		c.Host.SendChSize = Default().Host.SendChSize
	}
	if c.Host.EventQueueSize <= 0 {
		c.Host.EventQueueSize = Default().Host.EventQueueSize
	}
	return nil
}
