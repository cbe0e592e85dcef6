package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/ochat"
	"github.com/fwojciec/ochat/sqlite"
)

// environment holds the process environment the commands depend on.
type environment struct {
	Home         string
	DB           string
	OllamaHost   string
	AnthropicKey string
	GeminiKey    string
}

// config holds the persistent flags.
type config struct {
	dbPath       string
	provider     string
	model        string
	host         string
	apiKey       string
	systemPrompt string
	logFile      string
	logLevel     string
	temperature  float64
	// temperatureSet is true when --temperature was given.
	temperatureSet bool
}

// app owns the resources shared by the commands: the logger, the store and,
// for commands that talk to a backend, the provider.
type app struct {
	env environment
	cfg config

	logger  *slog.Logger
	logFile io.Closer
	store   *sqlite.Store
}

func (a *app) dataDir() string {
	return filepath.Join(a.env.Home, ".ochat")
}

// open sets up logging and the store. It runs before every command.
func (a *app) open() error {
	logPath := a.cfg.logFile
	if logPath == "" {
		logPath = filepath.Join(a.dataDir(), "ochat.log")
	}
	logger, f, err := openLogger(logPath, a.cfg.logLevel)
	if err != nil {
		return err
	}
	a.logger, a.logFile = logger, f

	dbPath := a.cfg.dbPath
	if dbPath == "" {
		dbPath = a.env.DB
	}
	if dbPath == "" {
		dbPath = filepath.Join(a.dataDir(), "ochat.db")
	}
	store, err := sqlite.Open(dbPath, sqlite.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.store = store
	a.logger.Debug("store opened", "path", store.Path())
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("close store", "error", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// session builds a Session over the store and the configured provider.
func (a *app) session(ctx context.Context) (*ochat.Session, error) {
	provider, err := resolveProvider(ctx, a.cfg.provider, a.cfg.apiKey, a.cfg.host, a.env)
	if err != nil {
		return nil, err
	}
	opts := []ochat.Option{
		ochat.WithLogger(a.logger),
		ochat.WithModel(a.cfg.model),
		ochat.WithSystemPrompt(a.cfg.systemPrompt),
	}
	if a.cfg.temperatureSet {
		opts = append(opts, ochat.WithTemperature(a.cfg.temperature))
	}
	return ochat.NewSession(a.store, provider, opts...), nil
}

// offlineSession builds a Session for commands that never stream.
func (a *app) offlineSession() *ochat.Session {
	return ochat.NewSession(a.store, offline{}, ochat.WithLogger(a.logger))
}

// offline is a Provider for commands that only touch the store.
type offline struct{}

func (offline) Stream(context.Context, ochat.Request) (ochat.Stream, error) {
	return nil, &ochat.BackendError{Provider: "offline", Err: fmt.Errorf("no backend configured")}
}

func (offline) Models(context.Context) ([]string, error) { return nil, nil }

// openLogger creates a JSON logger appending to path. The TUI owns the
// terminal, so logs never go to stderr.
func openLogger(path, level string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl})), f, nil
}

// parseIDs parses conversation id arguments.
func parseIDs(args []string) ([]ochat.ConversationID, error) {
	ids := make([]ochat.ConversationID, 0, len(args))
	for _, arg := range args {
		id, err := ochat.ParseConversationID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readPrompt resolves a --system-prompt value. A value starting with "@"
// names a file to read.
func readPrompt(value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
