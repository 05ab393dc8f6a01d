package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/config"
	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/dispatch"
	"github.com/agenthands/lila/internal/logging"
	"github.com/agenthands/lila/internal/prompts"
	"github.com/agenthands/lila/internal/seed"
	"github.com/agenthands/lila/internal/server"
	"github.com/agenthands/lila/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP endpoint over HTTP or stdio",
		RunE:  runServe,
	}
	cmd.Flags().String("transport", "", "stdio or http (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if t, _ := cmd.Flags().GetString("transport"); t != "" {
		cfg.Server.Transport = t
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.store.Close(context.Background()); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	if cfg.Store.Backend == config.StoreMemory && cfg.Store.SeedDefaults {
		if _, err := seed.Load(ctx, a.store, seed.Defaults(), log); err != nil {
			return err
		}
	}

	switch cfg.Server.Transport {
	case config.TransportStdio:
		log.Info("serving mcp over stdio")
		return mcpserver.ServeStdio(a.mcp)
	default:
		return a.httpServer(cfg, log).Run(ctx, cfg.Addr())
	}
}

// app is the store, engine and MCP server that serve runs. A graph store
// that cannot be reached yet still yields an app; health reports degraded
// and tools return store-unavailable failures until it comes up.
type app struct {
	store  store.Store
	engine *core.Engine
	mcp    *mcpserver.MCPServer
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	renderer, err := prompts.New(cfg.Prompts)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	engine := core.NewEngine(st, engineOptions(cfg.Engine), log)
	return &app{
		store:  st,
		engine: engine,
		mcp:    dispatch.New(engine, renderer, log).NewServer(VersionString()),
	}, nil
}

func (a *app) httpServer(cfg *config.Config, log *zap.Logger) *server.Server {
	return server.NewServer(a.engine, a.mcp, cfg.Store.Backend, log)
}
