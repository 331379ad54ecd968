package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configurable server parameters. Values come from
// built-in defaults, overridden by an optional TOML file (CURVY_CONFIG),
// overridden by the PORT and WEB_DIR environment variables.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Game    GameConfig    `toml:"game"`
}

type ServerConfig struct {
	Port   int    `toml:"port"`
	WebDir string `toml:"web_dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type GameConfig struct {
	BoardSize       float64       `toml:"board_size"` // base side, grown by player count
	IdleRoomTimeout time.Duration `toml:"idle_room_timeout"`
	SoloAllowed     bool          `toml:"solo_allowed"`
	BonusesEnabled  bool          `toml:"bonuses_enabled"`
	FlushInterval   time.Duration `toml:"flush_interval"`
	SendTimeout     time.Duration `toml:"send_timeout"`
	PingInterval    time.Duration `toml:"ping_interval"`
}

// Load reads the config file at path when it exists, then applies
// environment overrides. An empty path loads defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if dir := os.Getenv("WEB_DIR"); dir != "" {
		cfg.Server.WebDir = dir
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return cfg, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:   8080,
			WebDir: "web",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Game: GameConfig{
			BoardSize:       100,
			IdleRoomTimeout: 60 * time.Second,
			SoloAllowed:     false,
			BonusesEnabled:  true,
			FlushInterval:   16 * time.Millisecond,
			SendTimeout:     2 * time.Second,
			PingInterval:    time.Second,
		},
	}
}
