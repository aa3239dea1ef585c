package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/parser"
	"github.com/graphquill/graphquill/core/runtime/server"
	"github.com/graphquill/graphquill/core/runtime/store"
)

// seedCmd loads a seed file's definitions into a SQL definition store.
// In-memory stores load seeds at startup and do not need this.
var seedCmd = &cobra.Command{
	Use:           "seed [seed-file-or-dir]",
	Short:         "Load seed definitions into the definition store",
	RunE:          runSeed,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the seed file (default: ./graphquill.yaml)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	log := logging.New("seed")

	seedPath, err := resolveSeedPath(args)
	if err != nil {
		return err
	}
	LoadEnvFiles("")

	seed, err := parser.ParseSeedFile(seedPath)
	if err != nil {
		return err
	}
	if err := parser.Validate(seed); err != nil {
		return err
	}

	cfg := server.ConfigFromEnv()
	if cfg.StoreDriver == "memory" {
		return fmt.Errorf("GRAPHQUILL_STORE_DRIVER is 'memory'; memory stores load seeds at startup")
	}

	sqlStore, err := store.OpenSQL(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer sqlStore.Close()

	ctx := context.Background()
	if err := sqlStore.InstallSchema(ctx); err != nil {
		return err
	}

	for _, tpl := range seed.DomainTemplates() {
		if err := sqlStore.Create(ctx, tpl); err != nil {
			return fmt.Errorf("failed to load template '%s': %w", tpl.Name, err)
		}
		log.Infof("Loaded template '%s'", tpl.Name)
	}

	for name, comp := range seed.Compositions {
		_, err := sqlStore.Compose(ctx, name, comp.Description,
			domain.CompositionKind(comp.Type), comp.Components)
		if err != nil {
			return fmt.Errorf("failed to load composition '%s': %w", name, err)
		}
		log.Infof("Loaded composition '%s'", name)
	}

	log.Infof("Seed loaded: %d template(s), %d composition(s)",
		len(seed.Templates), len(seed.Compositions))
	return nil
}
