// Package config holds the dispatcher2 web settings: shipped defaults, a resolver
// for paths relative to the project directory, and an optional local settings file
// that overrides defaults when present. Sources are layered with precedence:
// CLI flags > local settings file > environment variables (.env below the process
// environment) > defaults.
package config
