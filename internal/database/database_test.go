package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/dispatcher2-web/internal/config"
)

func TestDSNFromDefaults(t *testing.T) {
	dsn := DSN(config.Default().Database)

	assert.Equal(t, "host=localhost port=5432 dbname=dispatcher2", dsn)
}

func TestDSNParsesWithPgx(t *testing.T) {
	settings := config.DatabaseSettings{
		DBName:   "dispatcher2",
		DBHost:   "db.internal",
		DBUser:   "web",
		DBPasswd: `it's a "pass\word"`,
		DBPort:   "6432",
	}

	cfg, err := pgx.ParseConfig(DSN(settings))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, uint16(6432), cfg.Port)
	assert.Equal(t, "dispatcher2", cfg.Database)
	assert.Equal(t, "web", cfg.User)
	assert.Equal(t, settings.DBPasswd, cfg.Password)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "dispatcher2", want: "dispatcher2"},
		{name: "space", input: "a b", want: "'a b'"},
		{name: "quote", input: "it's", want: `'it\'s'`},
		{name: "backslash", input: `a\b`, want: `'a\\b'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quote(tt.input))
		})
	}
}

func TestOpenFailsWhenServerUnreachable(t *testing.T) {
	settings := config.Default().Database
	settings.DBHost = "127.0.0.1"
	settings.DBPort = "1"

	db, err := Open(context.Background(), settings, zaptest.NewLogger(t))

	require.Error(t, err)
	assert.Nil(t, db)
}
