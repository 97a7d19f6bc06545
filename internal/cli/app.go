package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/agent"
	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/config"
	"github.com/cojourney/cjagent/internal/provider"
	"github.com/cojourney/cjagent/internal/store"
	"github.com/cojourney/cjagent/internal/worker"
)

// app is a fully wired runtime with everything it owns.
type app struct {
	cfg     *config.Config
	store   *store.Store
	pool    *worker.Pool
	runtime *agent.Runtime
	kafka   *audit.KafkaSink
}

// loadApp reads configuration, installs the default logger and wires the
// runtime against the configured model provider.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, cfg.Log)))

	client, err := provider.Resolve(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}
	return newApp(cfg, client)
}

// newApp wires a runtime for cfg around an already resolved provider.
func newApp(cfg *config.Config, client provider.Client) (*app, error) {
	path, err := storePath(cfg.Paths.StorePath)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	a := &app{cfg: cfg, store: db}

	sinks := audit.Multi{db}
	if cfg.Audit.KafkaBrokers != "" {
		a.kafka = audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		sinks = append(sinks, a.kafka)
		slog.Info("Audit entries mirrored to Kafka", "brokers", cfg.Audit.KafkaBrokers, "topic", cfg.Audit.KafkaTopic)
	}

	overrides := agent.CojourneyOverrides()
	if p := cfg.Agent.ActionOverridesPath; p != "" {
		if p, err = config.ExpandHome(p); err != nil {
			_ = a.Close()
			return nil, err
		}
		fromFile, err := actions.LoadOverrides(p)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		for name, o := range fromFile {
			overrides[name] = overrides[name].Merge(o)
		}
	}

	a.pool = worker.New(cfg.Agent.Workers, cfg.Agent.QueueSize)
	a.runtime, err = agent.New(agent.Options{
		AgentID:            cfg.Agent.ID,
		AgentName:          cfg.Agent.Name,
		Store:              db,
		Completer:          provider.NewChatCompleter(client, "", cfg.Model.MaxTokens, cfg.Model.Temperature),
		Embedder:           client,
		Audit:              sinks,
		Pool:               a.pool,
		Overrides:          overrides,
		MaxTries:           cfg.Agent.MaxTries,
		RecentMessageCount: cfg.Agent.RecentMessageCount,
		RelationshipCount:  cfg.Agent.RelationshipCount,
		MaxContinuesInARow: cfg.Agent.MaxContinuesInARow,
		MinSimilarity:      cfg.Agent.MinSimilarity,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close drains background work before releasing the store.
func (a *app) Close() error {
	var errs []error
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

func storePath(p string) (string, error) {
	if p == ":memory:" {
		return p, nil
	}
	p, err := config.ExpandHome(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", fmt.Errorf("create store dir: %w", err)
	}
	return p, nil
}
