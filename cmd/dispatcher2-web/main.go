package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/dispatcher2-web/internal/application"
	"github.com/eugenenazirov/dispatcher2-web/internal/config"
	"github.com/eugenenazirov/dispatcher2-web/internal/database"
	"github.com/eugenenazirov/dispatcher2-web/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("dispatcher2-web", "dispatcher2 web front - settings, sessions and status API")
	configFile := kingpinApp.Flag("config", "Path to a local settings file (YAML or TOML)").String()
	projectDir := kingpinApp.Flag("project-dir", "Directory that relative paths and local settings resolve against").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	debug := kingpinApp.Flag("debug", "Enable debug mode").Bool()
	logFile := kingpinApp.Flag("logfile", "Log file path").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP server").Default()
	settingsCmd := kingpinApp.Command("settings", "Print the effective settings with secrets redacted")
	tokenCmd := kingpinApp.Command("token", "Issue a session token signed with the secret key")
	tokenSubject := tokenCmd.Flag("subject", "Token subject").Required().String()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *projectDir != "" {
		overrides.ProjectDir = projectDir
	}

	if *port != "" {
		overrides.Port = port
	}

	if *debug {
		overrides.Debug = debug
	}

	if *logFile != "" {
		overrides.LogFile = logFile
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		kingpinApp.Fatalf("failed to load configuration: %v", err)
	}

	switch command {
	case settingsCmd.FullCommand():
		if err := printSettings(os.Stdout, cfg); err != nil {
			kingpinApp.Fatalf("%v", err)
		}
	case tokenCmd.FullCommand():
		if err := printToken(os.Stdout, cfg, *tokenSubject); err != nil {
			kingpinApp.Fatalf("%v", err)
		}
	case serveCmd.FullCommand():
		serve(cfg)
	}
}

func serve(cfg config.Config) {
	logger, err := logging.New(logging.Options{
		Debug: cfg.Debug,
		File:  cfg.Database.LogFile,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := database.Open(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	app, err := application.New(cfg, logger, application.WithDatabase(db))
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.Server, logger)
}

// printSettings writes the effective settings as YAML, preserving entry order.
func printSettings(w io.Writer, cfg config.Config) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range cfg.Entries() {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Display(), Style: yaml.DoubleQuotedStyle},
		)
	}
	if cfg.Source != "" {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "source"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: cfg.Source, Style: yaml.DoubleQuotedStyle},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

func printToken(w io.Writer, cfg config.Config, subject string) error {
	sessions, err := application.NewSessionManager(cfg)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	token, err := sessions.Issue(subject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\nexpires: %s\n", token.Value, token.ExpiresAt.Format(time.RFC3339))
	return err
}

// shutdown blocks until a termination signal arrives, then drains the server
// within the configured grace period before forcing it closed.
func shutdown(server *http.Server, settings config.ServerSettings, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server",
		zap.Stringer("signal", sig),
		zap.Duration("grace_period", settings.ShutdownGracePeriod),
	)

	ctx, cancel := context.WithTimeout(context.Background(), settings.ShutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
