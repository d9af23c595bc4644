package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envPrefix     = "DISPATCHER2_"
	envProjectDir = envPrefix + "PROJECT_DIR"
	dotEnvFile    = ".env"
)

type lookupFunc func(key string) (string, bool)

// envLookup consults the process environment first and falls back to values read
// from a .env file. Blank process values count as unset.
func envLookup(dotenv map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
}

func lookupTrimmed(lookup lookupFunc, key string) string {
	value, _ := lookup(key)
	return strings.TrimSpace(value)
}

// readDotEnv reads <dir>/.env. A missing file yields no values.
func readDotEnv(dir string) (map[string]string, error) {
	values, err := godotenv.Read(Resolve(dir, dotEnvFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return values, nil
}

// applyEnvConfig applies environment variable configuration. Values that fail to
// parse are skipped.
func applyEnvConfig(cfg *Config, lookup lookupFunc) {
	if v := lookupTrimmed(lookup, envPrefix+"DEBUG"); v != "" {
		if value, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = value
		}
	}

	if v := lookupTrimmed(lookup, envPrefix+"SESSION_TIMEOUT"); v != "" {
		if value, err := strconv.Atoi(v); err == nil && value > 0 {
			cfg.SessionTimeout = value
		}
	}

	if v := lookupTrimmed(lookup, envPrefix+"PAGE_LIMIT"); v != "" {
		if value, err := strconv.Atoi(v); err == nil && value > 0 {
			cfg.PageLimit = value
		}
	}

	stringVars := []struct {
		name   string
		target *string
	}{
		{"HASH_KEY", &cfg.HashKey},
		{"VALIDATE_KEY", &cfg.ValidateKey},
		{"ENCRYPT_KEY", &cfg.EncryptKey},
		{"SECRET_KEY", &cfg.SecretKey},
		{"DB_NAME", &cfg.Database.DBName},
		{"DB_HOST", &cfg.Database.DBHost},
		{"DB_USER", &cfg.Database.DBUser},
		{"DB_PASSWD", &cfg.Database.DBPasswd},
		{"DB_PORT", &cfg.Database.DBPort},
		{"LOGFILE", &cfg.Database.LogFile},
		{"PORT", &cfg.Server.Port},
	}
	for _, sv := range stringVars {
		if v := lookupTrimmed(lookup, envPrefix+sv.name); v != "" {
			*sv.target = v
		}
	}
}
