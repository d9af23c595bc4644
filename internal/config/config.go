package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultSessionTimeout = 3600 // 1 hour
	defaultPageLimit      = 25

	defaultDBName  = "dispatcher2"
	defaultDBHost  = "localhost"
	defaultDBPort  = "5432"
	defaultLogFile = "/tmp/dispatcher2-web.log"

	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Keys of the database/log mapping.
const (
	KeyDBName   = "db_name"
	KeyDBHost   = "db_host"
	KeyDBUser   = "db_user"
	KeyDBPasswd = "db_passwd"
	KeyDBPort   = "db_port"
	KeyLogFile  = "logfile"
)

// ErrUnknownKey is returned when a key outside the fixed database/log mapping is used.
var ErrUnknownKey = errors.New("unknown config key")

// Config aggregates the web settings resolved from multiple sources.
// Precedence: CLI flags > local settings file > Environment variables > Defaults
type Config struct {
	Debug          bool
	SessionTimeout int `validate:"gt=0"` // seconds
	HashKey        string
	ValidateKey    string
	EncryptKey     string
	SecretKey      string
	PageLimit      int `validate:"gte=1,lte=1000"`

	// ProjectDir anchors Absolute. Empty means the executable's directory.
	ProjectDir string

	Database DatabaseSettings
	Server   ServerSettings

	// Source is the local settings file that was applied, if any.
	Source string
}

// DatabaseSettings is the fixed-key database and log mapping.
type DatabaseSettings struct {
	DBName   string `validate:"required"`
	DBHost   string `validate:"required"`
	DBUser   string
	DBPasswd string
	DBPort   string `validate:"required,dbport"`
	LogFile  string `validate:"required"`
}

// ServerSettings holds the HTTP server knobs.
type ServerSettings struct {
	Port                 string `validate:"required"`
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64 `validate:"gte=0"`
	RateLimitBurst       int     `validate:"gte=0"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	ProjectDir     *string
	Port           *string
	Debug          *bool
	LogFile        *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Default returns a fresh Config populated with the shipped defaults.
func Default() Config {
	return Config{
		Debug:          false,
		SessionTimeout: defaultSessionTimeout,
		PageLimit:      defaultPageLimit,
		Database: DatabaseSettings{
			DBName:  defaultDBName,
			DBHost:  defaultDBHost,
			DBPort:  defaultDBPort,
			LogFile: defaultLogFile,
		},
		Server: ServerSettings{
			Port:                 defaultPort,
			ShutdownGracePeriod:  10 * time.Second,
			ReadHeaderTimeout:    5 * time.Second,
			WriteTimeout:         15 * time.Second,
			IdleTimeout:          60 * time.Second,
			EnableRequestLogging: true,
			RateLimitRPS:         defaultRateLimitRPS,
			RateLimitBurst:       defaultRateLimitBurst,
		},
	}
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > local settings file > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := Default()

	dir, err := resolveProjectDir(overrides)
	if err != nil {
		return Config{}, err
	}
	cfg.ProjectDir = dir

	dotenv, err := readDotEnv(dir)
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnvConfig(&cfg, envLookup(dotenv))

	var explicit string
	if overrides != nil {
		explicit = overrides.ConfigFile
	}
	if err := applyLocalSettings(&cfg, explicit); err != nil {
		return Config{}, fmt.Errorf("load local settings: %w", err)
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the final configuration.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("dbport", isPort); err != nil {
		return fmt.Errorf("register port validation: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// isPort accepts decimal TCP ports in 1..65535.
func isPort(fl validator.FieldLevel) bool {
	port, err := strconv.Atoi(fl.Field().String())
	return err == nil && port >= 1 && port <= 65535
}

// SessionTimeoutDuration returns SessionTimeout as a time.Duration.
func (c Config) SessionTimeoutDuration() time.Duration {
	return time.Duration(c.SessionTimeout) * time.Second
}

// DatabaseKeys lists the keys of the database/log mapping in declaration order.
func DatabaseKeys() []string {
	return []string{KeyDBName, KeyDBHost, KeyDBUser, KeyDBPasswd, KeyDBPort, KeyLogFile}
}

// Map returns the mapping keyed by its fixed names.
func (s DatabaseSettings) Map() map[string]string {
	return map[string]string{
		KeyDBName:   s.DBName,
		KeyDBHost:   s.DBHost,
		KeyDBUser:   s.DBUser,
		KeyDBPasswd: s.DBPasswd,
		KeyDBPort:   s.DBPort,
		KeyLogFile:  s.LogFile,
	}
}

// Set assigns a single key of the mapping.
func (s *DatabaseSettings) Set(key, value string) error {
	switch key {
	case KeyDBName:
		s.DBName = value
	case KeyDBHost:
		s.DBHost = value
	case KeyDBUser:
		s.DBUser = value
	case KeyDBPasswd:
		s.DBPasswd = value
	case KeyDBPort:
		s.DBPort = value
	case KeyLogFile:
		s.LogFile = value
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return nil
}

func resolveProjectDir(overrides *CLIOverrides) (string, error) {
	dir := ""
	if overrides != nil && overrides.ProjectDir != nil {
		dir = *overrides.ProjectDir
	}
	if dir == "" {
		dir = lookupTrimmed(envLookup(nil), envProjectDir)
	}
	if dir == "" {
		return ProjectDir(), nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Server.Port = *overrides.Port
	}

	if overrides.Debug != nil {
		cfg.Debug = *overrides.Debug
	}

	if overrides.LogFile != nil && *overrides.LogFile != "" {
		cfg.Database.LogFile = *overrides.LogFile
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.Server.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.Server.RateLimitBurst = *overrides.RateLimitBurst
	}
}
