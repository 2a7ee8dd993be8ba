// Package config loads practicetime settings from the environment and
// command-line flags. Flags win over environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings shared by the serve and play commands.
type Config struct {
	Addr             string        `env:"PRACTICETIME_ADDR" envDefault:":8080"`
	DBPath           string        `env:"PRACTICETIME_DB_PATH"`
	DBReadOnly       bool          `env:"PRACTICETIME_DB_READ_ONLY"`
	BusyTimeout      time.Duration `env:"PRACTICETIME_DB_BUSY_TIMEOUT" envDefault:"5s"`
	ScriptsDir       string        `env:"PRACTICETIME_SCRIPTS_DIR"`
	TickInterval     time.Duration `env:"PRACTICETIME_TICK_INTERVAL" envDefault:"1s"`
	SessionRetention time.Duration `env:"PRACTICETIME_SESSION_RETENTION" envDefault:"30m"`
	AuthSessionTTL   time.Duration `env:"PRACTICETIME_AUTH_SESSION_TTL" envDefault:"24h"`
	LoginInterval    time.Duration `env:"PRACTICETIME_LOGIN_INTERVAL" envDefault:"1s"`
	CORS             bool          `env:"PRACTICETIME_CORS"`
	Speech           bool          `env:"PRACTICETIME_SPEECH"`
	TTSBin           string        `env:"PRACTICETIME_TTS_BIN"`
	TTSRate          int           `env:"PRACTICETIME_TTS_RATE"`

	// ScriptID is only used by the play command.
	ScriptID string
}

// Parse reads the environment into a Config with defaults applied.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "practicetime.db")
	}
	return cfg, nil
}

// ParseServe parses the serve command's flags on top of the environment.
func ParseServe(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address (default: PRACTICETIME_ADDR or :8080)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to sqlite database (default: PRACTICETIME_DB_PATH or data/practicetime.db)")
	fs.BoolVar(&cfg.DBReadOnly, "db-read-only", cfg.DBReadOnly, "open the database read-only; results are not saved")
	fs.DurationVar(&cfg.BusyTimeout, "db-busy-timeout", cfg.BusyTimeout, "sqlite busy timeout")
	fs.StringVar(&cfg.ScriptsDir, "scripts", cfg.ScriptsDir, "directory of additional *.json scripts")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "how often live sessions are ticked")
	fs.DurationVar(&cfg.SessionRetention, "retention", cfg.SessionRetention, "how long ended sessions stay queryable")
	fs.DurationVar(&cfg.AuthSessionTTL, "auth-ttl", cfg.AuthSessionTTL, "bearer token lifetime")
	fs.DurationVar(&cfg.LoginInterval, "login-interval", cfg.LoginInterval, "minimum interval between login attempts per client")
	fs.BoolVar(&cfg.CORS, "cors", cfg.CORS, "send Access-Control-Allow-Origin: *")
	bindSpeechFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ParsePlay parses the play command's flags on top of the environment.
func ParsePlay(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.ScriptID, "script", "att-standard", "id of the script to play")
	fs.StringVar(&cfg.ScriptsDir, "scripts", cfg.ScriptsDir, "directory of additional *.json scripts")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "tick interval")
	bindSpeechFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.ScriptID) == "" {
		return Config{}, errors.New("config: -script is required")
	}
	return cfg, cfg.Validate()
}

func bindSpeechFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Speech, "speech", cfg.Speech, "speak instructions with a text-to-speech binary")
	fs.StringVar(&cfg.TTSBin, "tts-bin", cfg.TTSBin, "text-to-speech binary (default: auto-detect)")
	fs.IntVar(&cfg.TTSRate, "tts-rate", cfg.TTSRate, "speech rate in words per minute (0 = binary default)")
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return errors.New("config: listen address is required")
	case strings.TrimSpace(c.DBPath) == "":
		return errors.New("config: database path is required")
	case c.TickInterval <= 0:
		return fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval)
	case c.SessionRetention <= 0:
		return fmt.Errorf("config: session retention must be positive, got %s", c.SessionRetention)
	case c.AuthSessionTTL <= 0:
		return fmt.Errorf("config: auth session ttl must be positive, got %s", c.AuthSessionTTL)
	case c.LoginInterval < 0:
		return fmt.Errorf("config: login interval must not be negative, got %s", c.LoginInterval)
	case c.TTSRate < 0:
		return fmt.Errorf("config: tts rate must not be negative, got %d", c.TTSRate)
	}
	return nil
}
