package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/parser"
	"github.com/graphquill/graphquill/core/runtime/server"
)

// defaultSeedFileName is looked up in the working directory when no seed
// file is given.
const defaultSeedFileName = "graphquill.yaml"

// serveCmd runs the server from a seed file.
var serveCmd = &cobra.Command{
	Use:           "serve [seed-file-or-dir]",
	Short:         "Serve templates from a seed file",
	RunE:          serveSeed,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the seed file (default: ./graphquill.yaml)")
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides GRAPHQUILL_PORT)")
	serveCmd.Flags().StringVarP(&backendName, "backend", "b", "", "Backend name to execute against (overrides GRAPHQUILL_BACKEND)")
	serveCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG")
	serveCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (sets log level to DEBUG)")
}

func serveSeed(cmd *cobra.Command, args []string) error {
	rt, err := prepareRuntime(args)
	if err != nil {
		return err
	}
	return rt.Start()
}

// prepareRuntime resolves the seed path, loads env files, validates the seed
// and assembles a runtime ready to start.
func prepareRuntime(args []string) (*server.Runtime, error) {
	log := logging.New("main")

	if verbose {
		logging.SetLogLevel(logging.LogLevelDebug)
	} else if logLevel > 0 {
		logging.SetLogLevel(logLevel)
	} else {
		logging.SetLogLevel(logging.LogLevelInfo)
	}

	seedPath, err := resolveSeedPath(args)
	if err != nil {
		return nil, err
	}

	LoadEnvFiles(filepath.Dir(seedPath))

	seed, err := parser.ParseSeedFile(seedPath)
	if err != nil {
		return nil, err
	}
	if err := parser.Validate(seed); err != nil {
		return nil, err
	}
	log.Infof("Seed file loaded and validated: %s", seedPath)

	cfg := server.ConfigFromEnv()
	if port != "" {
		cfg.Port = port
	}
	if backendName != "" {
		cfg.Backend = backendName
	}

	rt, err := server.NewRuntime(seed, cfg, GetVersion())
	if err != nil {
		return nil, err
	}
	log.Infof("Runtime initialized")
	return rt, nil
}

func resolveSeedPath(args []string) (string, error) {
	seedPath := seedFile
	if len(args) > 0 {
		seedPath = args[0]
	}
	if seedPath == "" {
		seedPath = defaultSeedFileName
	}

	if info, err := os.Stat(seedPath); err == nil && info.IsDir() {
		seedPath = filepath.Join(seedPath, defaultSeedFileName)
	}

	return filepath.Abs(seedPath)
}
