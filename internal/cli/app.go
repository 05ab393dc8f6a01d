package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/config"
	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/driver"
	"github.com/agenthands/lila/internal/logging"
	"github.com/agenthands/lila/internal/store"
)

// loadConfig reads the --config file, then the environment, then flag
// overrides. A missing file at the default path falls back to defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, explicit := defaultConfigPath, false
	if f := cmd.Flag("config"); f != nil {
		path, explicit = f.Value.String(), f.Changed
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, err
		}
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if f := cmd.Flag("store"); f != nil && f.Value.String() != "" {
		cfg.Store.Backend = f.Value.String()
	}
	return cfg, nil
}

// setup loads config and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		log.Info("using in-memory store")
		return store.NewMemoryStore(store.WithLogger(log)), nil
	case config.StoreNeo4j:
		d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database, log,
			driver.WithMaxRetryTime(time.Duration(cfg.Neo4j.MaxRetrySeconds*float64(time.Second))))
		if err != nil {
			return nil, fmt.Errorf("failed to create neo4j driver for %s: %w", cfg.Neo4j.URI, err)
		}
		if cfg.Neo4j.BuildIndices {
			// Indices are created on the first start that can reach the
			// server; an unreachable one leaves them for the next start.
			if err := d.BuildIndices(ctx); err != nil {
				if !errors.Is(err, driver.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
					_ = d.Close(ctx)
					return nil, err
				}
				log.Warn("skipping schema setup, neo4j unavailable", zap.Error(err))
			}
		}
		return store.NewGraphStore(d, store.WithLogger(log)), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func engineOptions(cfg config.EngineConfig) core.Options {
	opts := core.DefaultOptions()
	opts.CreateMissingRelationships = cfg.CreateMissingRelationships
	opts.DefaultRelationship = model.Relationship{
		TrustLevel:           cfg.DefaultTrust,
		IntimacyLevel:        cfg.DefaultIntimacy,
		RelationshipStrength: cfg.DefaultStrength,
		RelationshipType:     cfg.DefaultRelationshipType,
	}
	if cfg.DefaultRelationshipType == "" {
		opts.DefaultRelationship.RelationshipType = model.DefaultRelationshipType
	}
	if cfg.CommunityAlgorithm != "" {
		opts.CommunityAlgorithm = cfg.CommunityAlgorithm
	}
	return opts
}
