package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Engine   EngineConfig   `json:"engine"`
	Database DatabaseConfig `json:"database"`
	Notify   NotifyConfig   `json:"notify"`
	Weights  WeightsConfig  `json:"weights"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// EngineConfig sizes the cognitive module pools for the session.
type EngineConfig struct {
	OwnerID      string `json:"owner_id"`
	FastModules  int    `json:"fast_modules"`
	DeepModules  int    `json:"deep_modules"`
	HistoryLimit int    `json:"history_limit"` // 0 = unbounded adaptation history
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type NotifyConfig struct {
	Slack   SlackNotifyConfig   `json:"slack"`
	Discord DiscordNotifyConfig `json:"discord"`
	Webhook WebhookNotifyConfig `json:"webhook"`
}

type SlackNotifyConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

type DiscordNotifyConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type WebhookNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// WeightsConfig optionally names a parameter buffer loaded at startup.
type WeightsConfig struct {
	Path string `json:"path"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable
// references, applying engine defaults afterwards.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Engine.OwnerID == "" {
		cfg.Engine.OwnerID = "default"
	}
	if cfg.Engine.FastModules == 0 {
		cfg.Engine.FastModules = 8
	}
	if cfg.Engine.DeepModules == 0 {
		cfg.Engine.DeepModules = 4
	}
	return &cfg, nil
}
