package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	RedisUrl            string `mapstructure:"REDIS_URL"`
	MongoUri            string `mapstructure:"MONGO_URI"`
	MongoDatabase       string `mapstructure:"MONGO_DATABASE"`
	IsLocalCors         bool   `mapstructure:"LOCAL_CORS"`
	StreakWindowMs      int    `mapstructure:"STREAK_WINDOW_MS"`
	PresenceTopLimit    int    `mapstructure:"PRESENCE_TOP_LIMIT"`
	AutoClickIntervalMs int    `mapstructure:"AUTOCLICK_INTERVAL_MS"`
	ClickMaxRetries     int    `mapstructure:"CLICK_MAX_RETRIES"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "clickbattle"
	}
	if cfg.StreakWindowMs <= 0 {
		cfg.StreakWindowMs = 3000
	}
	if cfg.PresenceTopLimit <= 0 {
		cfg.PresenceTopLimit = 3
	}
	if cfg.AutoClickIntervalMs <= 0 {
		cfg.AutoClickIntervalMs = 1000
	}
	if cfg.ClickMaxRetries <= 0 {
		cfg.ClickMaxRetries = 4
	}
}
