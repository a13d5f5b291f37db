// Package config loads the client configuration: an optional .env file,
// AIINTERVIEW_* environment variables and command line flags, later
// sources overriding earlier ones.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of every environment variable the client reads
const EnvPrefix = "AIINTERVIEW_"

// DefaultDotEnv - файл с переменными окружения в рабочем каталоге
const DefaultDotEnv = ".env"

// MemoryDB as the database path keeps the profile in memory only
const MemoryDB = ":memory:"

// Config содержит настройки клиента
type Config struct {
	ServerURL    string        `env:"SERVER" envDefault:"http://localhost:8000"`
	DBPath       string        `env:"DB" envDefault:"aiinterview-client.db"`
	DownloadDir  string        `env:"DOWNLOAD_DIR" envDefault:"."`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	Args         []string      `env:"-"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	OpeningDelay time.Duration `env:"OPENING_DELAY" envDefault:"800ms"`
	EndDelay     time.Duration `env:"END_DELAY" envDefault:"2s"`
	Verbose      bool          `env:"VERBOSE" envDefault:"false"`
	ShowVersion  bool          `env:"-"`
}

// Load reads .env from the working directory, the process environment and
// args (without the program name).
func Load(args []string) (*Config, error) {
	return load(args, DefaultDotEnv, os.Environ(), os.Stderr)
}

func load(args []string, dotenvPath string, environ []string, flagOutput io.Writer) (*Config, error) {
	environment, err := mergeEnvironment(dotenvPath, environ)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.parseFlags(args, flagOutput); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeEnvironment: переменные процесса перекрывают значения из .env
func mergeEnvironment(dotenvPath string, environ []string) (map[string]string, error) {
	environment := map[string]string{}

	if dotenvPath != "" {
		values, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			for k, v := range values {
				environment[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
			// .env необязателен
		default:
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
	}

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			environment[k] = v
		}
	}
	return environment, nil
}

func (c *Config) parseFlags(args []string, output io.Writer) error {
	flags := flag.NewFlagSet("aiinterview", flag.ContinueOnError)
	flags.SetOutput(output)

	flags.BoolVar(&c.ShowVersion, "version", false, "Show version information")
	flags.StringVar(&c.ServerURL, "server", c.ServerURL, "Server URL")
	flags.StringVar(&c.DBPath, "db", c.DBPath, "Path to local database (:memory: for a throwaway profile)")
	flags.StringVar(&c.DownloadDir, "download-dir", c.DownloadDir, "Directory for exported files")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	flags.DurationVar(&c.HTTPTimeout, "timeout", c.HTTPTimeout, "HTTP request timeout (0 - no timeout)")
	flags.BoolVar(&c.Verbose, "verbose", c.Verbose, "Show request progress")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	c.Args = flags.Args()
	return nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %s", c.HTTPTimeout)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts LogLevel into a slog.Level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// InMemory reports whether the profile is not persisted
func (c *Config) InMemory() bool {
	return c.DBPath == MemoryDB
}
