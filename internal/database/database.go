// Package database opens the PostgreSQL handle described by the database settings.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/eugenenazirov/dispatcher2-web/internal/config"
)

const (
	driverName     = "pgx"
	maxOpenConns   = 10
	maxIdleConns   = 5
	connMaxLife    = 5 * time.Minute
	defaultPingTTL = 5 * time.Second
)

// DSN builds a libpq key/value connection string. Empty settings are omitted so
// libpq defaults apply.
func DSN(s config.DatabaseSettings) string {
	pairs := []struct {
		key   string
		value string
	}{
		{"host", s.DBHost},
		{"port", s.DBPort},
		{"dbname", s.DBName},
		{"user", s.DBUser},
		{"password", s.DBPasswd},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quote(p.value))
	}
	return strings.Join(parts, " ")
}

// quote escapes a value per libpq rules: single quotes around values containing
// whitespace, quotes or backslashes.
func quote(value string) string {
	if !strings.ContainsAny(value, " \t\n'\\") {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

// Open establishes a pooled connection and verifies it with a ping.
func Open(ctx context.Context, s config.DatabaseSettings, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open(driverName, DSN(s))
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLife)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTTL)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s@%s:%s: %w", s.DBName, s.DBHost, s.DBPort, err)
	}

	logger.Info("database connection established",
		zap.String("db_name", s.DBName),
		zap.String("db_host", s.DBHost),
		zap.String("db_port", s.DBPort),
	)
	return db, nil
}
