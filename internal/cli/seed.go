package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load personas and relationships into the store",
		Long: "Loads the built-in personas, a family-graph JSON file, or both. " +
			"Existing relationships are left unchanged.",
		RunE: runSeed,
	}
	cmd.Flags().String("file", "", "family-graph JSON file to import")
	cmd.Flags().Bool("defaults", false, "load the built-in personas")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	defaults, _ := cmd.Flags().GetBool("defaults")
	if file == "" {
		defaults = true
	}

	var data []seed.Data
	if defaults {
		data = append(data, seed.Defaults())
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		d, err := seed.ParseFamilyGraph(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		data = append(data, d)
	}

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	var total seed.Result
	for _, d := range data {
		res, err := seed.Load(ctx, st, d, log)
		if err != nil {
			return err
		}
		total.Personas += res.Personas
		total.Relationships += res.Relationships
		total.Existing += res.Existing
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d personas, %d new relationships (%d already present) into %s store\n",
		total.Personas, total.Relationships, total.Existing, cfg.Store.Backend)
	return nil
}
