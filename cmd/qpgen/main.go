package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	appI18n "github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "qpgen",
		Short:        "Compose, review and download generated question papers",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, statusCmd(), syllabusCmd(), paperCmd(), historyCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `qpgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addCommonFlags registers the backend, database, language and logging flags
// every command shares.
func addCommonFlags(f *pflag.FlagSet) {
	f.String("api-url", backend.DefaultBaseURL, "Question paper backend API root")
	f.Duration("timeout", 30*time.Second, "Backend request timeout")
	f.String("db", "qpgen.db", "SQLite history database path")
	f.StringP("lang", "l", "en", "Output language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
// A .env file in the working directory is loaded into the environment first.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}

	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QPGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("qpgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/qpgen")
	v.AddConfigPath("/etc/qpgen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// env is what a CLI command works with once its configuration is resolved.
type env struct {
	v      *viper.Viper
	ctx    context.Context
	client *backend.Client
	db     *store.Store
	stop   context.CancelFunc
}

func (e *env) Close() {
	e.stop()
	if e.db != nil {
		_ = e.db.Close()
	}
}

// openEnv sets up logging, i18n, the backend client and the history store
// for a command. The returned context is cancelled on SIGINT or SIGTERM.
func openEnv(cmd *cobra.Command) (*env, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}

	client, err := backend.New(v.GetString("api-url"), v.GetDuration("timeout"))
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	bindBackend(db, client.BaseURL())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx = appI18n.WithLang(ctx, appI18n.Match(lang))
	return &env{v: v, ctx: ctx, client: client, db: db, stop: stop}, nil
}

// bindBackend records the backend the history belongs to, warning when it
// differs from the one the history was recorded against.
func bindBackend(db *store.Store, url string) {
	changed, err := db.BindBackend(url)
	if err != nil {
		slog.Warn("failed to record backend URL", "error", err)
		return
	}
	if changed {
		slog.Warn("backend URL changed; local history refers to another backend", "api_url", url)
	}
}
