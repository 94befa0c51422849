package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Exercise struct {
		TTL string `yaml:"ttl"`
	} `yaml:"exercise"`
	Game  Game `yaml:"game"`
	Rooms struct {
		Fixed []FixedRoom `yaml:"fixed"`
	} `yaml:"rooms"`
}

// Game holds the phase timings of the session state machine. Zero values are
// replaced with defaults; tests inject short durations for determinism.
type Game struct {
	StartDelay       string `yaml:"startDelay"`
	RevealDelay      string `yaml:"revealDelay"`
	LeaderboardDelay string `yaml:"leaderboardDelay"`
	TickPeriod       string `yaml:"tickPeriod"`
	DefaultTimeLimit int    `yaml:"defaultTimeLimit"`
	DefaultPoints    int    `yaml:"defaultPoints"`
}

// FixedRoom describes a long-lived class room pre-allocated at startup.
type FixedRoom struct {
	Code       string `yaml:"code"`
	Title      string `yaml:"title"`
	Grade      string `yaml:"grade"`
	MaxPlayers int    `yaml:"maxPlayers"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
