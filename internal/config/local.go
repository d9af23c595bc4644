package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LocalSettingsCandidates are the override file names looked up in the project
// directory, in order.
var LocalSettingsCandidates = []string{
	"local_settings.yaml",
	"local_settings.yml",
	"local_settings.toml",
}

// localSettings is the override file structure. Nil fields were not set by the file.
type localSettings struct {
	Debug          *bool          `yaml:"debug" toml:"debug"`
	SessionTimeout *int           `yaml:"session_timeout" toml:"session_timeout"`
	HashKey        *string        `yaml:"hash_key" toml:"hash_key"`
	ValidateKey    *string        `yaml:"validate_key" toml:"validate_key"`
	EncryptKey     *string        `yaml:"encrypt_key" toml:"encrypt_key"`
	SecretKey      *string        `yaml:"secret_key" toml:"secret_key"`
	PageLimit      *int           `yaml:"page_limit" toml:"page_limit"`
	Config         map[string]any `yaml:"config" toml:"config"`
	Server         *localServer   `yaml:"server" toml:"server"`
}

// localServer represents the server section of the override file.
type localServer struct {
	Port                 any            `yaml:"port" toml:"port"`
	ShutdownGracePeriod  string         `yaml:"shutdown_grace_period" toml:"shutdown_grace_period"`
	ReadHeaderTimeout    string         `yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout         string         `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout          string         `yaml:"idle_timeout" toml:"idle_timeout"`
	EnableRequestLogging *bool          `yaml:"enable_request_logging" toml:"enable_request_logging"`
	RateLimit            localRateLimit `yaml:"rate_limit" toml:"rate_limit"`
}

type localRateLimit struct {
	RPS   *float64 `yaml:"rps" toml:"rps"`
	Burst *int     `yaml:"burst" toml:"burst"`
}

// applyLocalSettings merges the override file into cfg. An explicit path must
// exist; otherwise the project directory is searched and absence is not an error.
func applyLocalSettings(cfg *Config, explicit string) error {
	path := explicit
	if path == "" {
		found, err := FindLocalSettings(cfg.ProjectDir)
		if err != nil {
			return err
		}
		if found == "" {
			return nil
		}
		path = found
	}

	local, err := loadLocalSettings(path)
	if err != nil {
		return err
	}
	if err := local.apply(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return nil
}

// FindLocalSettings returns the first override file present in dir, or "" when
// there is none.
func FindLocalSettings(dir string) (string, error) {
	for _, name := range LocalSettingsCandidates {
		candidate := Resolve(dir, name)
		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		if info.IsDir() {
			continue
		}
		return candidate, nil
	}
	return "", nil
}

// loadLocalSettings decodes an override file, choosing the format by extension.
func loadLocalSettings(path string) (*localSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var local localSettings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &local); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	default:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
		if doc.Kind == 0 {
			break
		}
		lowerKeys(&doc)
		if err := doc.Decode(&local); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	}

	return &local, nil
}

// lowerKeys lowercases every mapping key so PAGE_LIMIT and page_limit name the
// same setting, matching how TOML keys are resolved.
func lowerKeys(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind == yaml.ScalarNode {
				key.Value = strings.ToLower(key.Value)
			}
		}
	}
	for _, child := range n.Content {
		lowerKeys(child)
	}
}

func (l *localSettings) apply(cfg *Config) error {
	if l.Debug != nil {
		cfg.Debug = *l.Debug
	}
	if l.SessionTimeout != nil {
		cfg.SessionTimeout = *l.SessionTimeout
	}
	if l.HashKey != nil {
		cfg.HashKey = *l.HashKey
	}
	if l.ValidateKey != nil {
		cfg.ValidateKey = *l.ValidateKey
	}
	if l.EncryptKey != nil {
		cfg.EncryptKey = *l.EncryptKey
	}
	if l.SecretKey != nil {
		cfg.SecretKey = *l.SecretKey
	}
	if l.PageLimit != nil {
		cfg.PageLimit = *l.PageLimit
	}

	for key, raw := range l.Config {
		value, err := scalarString(raw)
		if err != nil {
			return fmt.Errorf("config.%s: %w", key, err)
		}
		if err := cfg.Database.Set(strings.ToLower(key), value); err != nil {
			return err
		}
	}

	if l.Server != nil {
		return l.Server.apply(&cfg.Server)
	}
	return nil
}

func (s *localServer) apply(cfg *ServerSettings) error {
	port, err := scalarString(s.Port)
	if err != nil {
		return fmt.Errorf("server.port: %w", err)
	}
	if port != "" {
		cfg.Port = port
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", s.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", s.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", s.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", s.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("server.%s: %w", d.name, err)
		}
		*d.target = value
	}

	if s.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *s.EnableRequestLogging
	}
	if s.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *s.RateLimit.RPS
	}
	if s.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *s.RateLimit.Burst
	}
	return nil
}

// scalarString renders a decoded scalar the way it was written.
func scalarString(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar value, got %T", raw)
	}
}
