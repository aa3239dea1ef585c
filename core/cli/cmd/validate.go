package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/parser"
)

var validateSource string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:           "validate [path]",
	Short:         "Validate a seed file",
	RunE:          validateSeed,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the seed file")
	validateCmd.Flags().StringVarP(&validateSource, "source", "s", "", "Seed content as a string (alternative to --file)")
}

func validateSeed(cmd *cobra.Command, args []string) error {
	log := logging.New("validate")

	var (
		seed     *parser.Seed
		err      error
		loadFrom string
	)

	if validateSource != "" {
		if seedFile != "" || len(args) > 0 {
			return fmt.Errorf("cannot combine --source with a file path")
		}
		seed, err = parser.ParseSeed([]byte(validateSource))
		loadFrom = "source"
	} else {
		var seedPath string
		seedPath, err = resolveSeedPath(args)
		if err != nil {
			return err
		}
		LoadEnvFiles("")
		seed, err = parser.ParseSeedFile(seedPath)
		loadFrom = seedPath
	}
	if err != nil {
		return err
	}

	if err := parser.Validate(seed); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	log.Info("Validation report:")
	log.Infof("  seed: %s", loadFrom)
	log.Infof("  backends: %d", len(seed.Backends))
	log.Infof("  templates: %d", len(seed.Templates))
	log.Infof("  compositions: %d", len(seed.Compositions))
	log.Infof("Seed file is valid: %s", loadFrom)
	return nil
}
