package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ProtocolVersion is the wire protocol revision clients must present in
// client_hello. Bumped only on incompatible message changes.
const ProtocolVersion = "1.0.0"

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	JWTSecret string `mapstructure:"jwt_secret"`
	DBPath    string `mapstructure:"db_path"`

	MaxRoomParticipants   int `mapstructure:"max_room_participants"`
	MaxRoomsPerConnection int `mapstructure:"max_rooms_per_connection"`
	MaxConnectionsPerIP   int `mapstructure:"max_connections_per_ip"`

	MessageBurst  int           `mapstructure:"message_burst"`
	MessageWindow time.Duration `mapstructure:"message_window"`

	ChatHistoryLimit int `mapstructure:"chat_history_limit"`

	TURNHost   string        `mapstructure:"turn_host"`
	TURNPort   int           `mapstructure:"turn_port"`
	TURNSecret string        `mapstructure:"turn_secret"`
	TURNTTL    time.Duration `mapstructure:"turn_ttl"`
}

// TURNEnabled reports whether a private relay is configured. Without a
// host only the public STUN endpoints are handed out.
func (c *Config) TURNEnabled() bool {
	return c.TURNHost != ""
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("jwt_secret", "vvoice-webrtc-dev-secret-DO-NOT-USE-IN-PROD")
	v.SetDefault("db_path", "data/vvoice.db")
	v.SetDefault("max_room_participants", 8)
	v.SetDefault("max_rooms_per_connection", 2)
	v.SetDefault("max_connections_per_ip", 5)
	v.SetDefault("message_burst", 60)
	v.SetDefault("message_window", "10s")
	v.SetDefault("chat_history_limit", 50)
	v.SetDefault("turn_host", "")
	v.SetDefault("turn_port", 3478)
	v.SetDefault("turn_secret", "dev-turn-secret-change-me")
	v.SetDefault("turn_ttl", "24h")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
