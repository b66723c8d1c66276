package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type IdentityCfg struct {
	BaseURL  string `mapstructure:"base_url"`
	HSSecret string `mapstructure:"hs_secret"`
}

type ProjectsCfg struct {
	BaseURL string `mapstructure:"base_url"`
}

type WSCfg struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	ReadDeadlineSeconds  int   `mapstructure:"read_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
}

type Config struct {
	App      AppCfg      `mapstructure:"app"`
	Mongo    MongoCfg    `mapstructure:"mongo"`
	Redis    RedisCfg    `mapstructure:"redis"`
	Kafka    KafkaCfg    `mapstructure:"kafka"`
	Identity IdentityCfg `mapstructure:"identity"`
	Projects ProjectsCfg `mapstructure:"projects"`
	WS       WSCfg       `mapstructure:"ws"`

	// Derived
	PingInterval  time.Duration
	WriteDeadline time.Duration
	ReadDeadline  time.Duration
}

// Load reads the config file at path and applies APP_* env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if c.App.Port == "" {
		c.App.Port = "8080"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "agencyflow"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "chat"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "chat-events"
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.ReadDeadlineSeconds == 0 {
		c.WS.ReadDeadlineSeconds = 60
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 65536
	}
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.ReadDeadline = time.Duration(c.WS.ReadDeadlineSeconds) * time.Second
	return &c, nil
}
