package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version stores the version string, set via SetVersion()
var version = "dev"

// SetVersion sets the version string (called from main.init())
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version string
func GetVersion() string {
	return version
}

var (
	seedFile    string
	port        string
	backendName string
	logLevel    int
	verbose     bool
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "graphquill",
	Short:         "Graphquill\nCompose and execute parameterized query templates",
	SilenceUsage:  true,
	SilenceErrors: true, // Errors are already logged, suppress Cobra's error output
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print the installed version and exit")

	// Root command should only print help.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		}
		return cmd.Help()
	}
}

// LoadEnvFiles attempts to load .env files from multiple locations.
// It tries each location in order and stops at the first successful load.
// System environment variables always take precedence over .env file values.
func LoadEnvFiles(fromDir string) {
	envFiles := []string{".env.local", ".env.development", ".env"}

	if fromDir != "" {
		for _, envFile := range envFiles {
			if err := godotenv.Load(filepath.Join(fromDir, envFile)); err == nil {
				return
			}
		}
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			return
		}
	}

	if execPath, err := os.Executable(); err == nil {
		if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = realPath
		}
		execDir := filepath.Dir(execPath)
		for _, envFile := range envFiles {
			if err := godotenv.Load(filepath.Join(execDir, envFile)); err == nil {
				return
			}
		}
	}
}
