package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

var devCmd = &cobra.Command{
	Use:   "dev [seed-file-or-dir]",
	Short: "Run the server in development mode",
	Long:  `Run the server and restart it when the seed file changes.`,
	RunE:  runDevServer,
	Args:  cobra.MaximumNArgs(1),
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the seed file (default: ./graphquill.yaml)")
	devCmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides GRAPHQUILL_PORT)")
	devCmd.Flags().StringVarP(&backendName, "backend", "b", "", "Backend name to execute against")
	devCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG")
	devCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (sets log level to DEBUG)")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	log := logging.New("dev")

	seedPath, err := resolveSeedPath(args)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(seedPath); err != nil {
		return err
	}

	restart := make(chan struct{}, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Watch for file changes with a debounce; editors fire several write
	// events per save
	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(500*time.Millisecond, func() {
						select {
						case restart <- struct{}{}:
						default:
						}
					})
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	log.Infof("Watching %s for changes...", seedPath)

	for {
		rt, err := prepareRuntime(args)
		if err != nil {
			// A broken seed during dev should not kill the watcher; wait for
			// the next save
			log.Errorf("Failed to start: %v", err)
			select {
			case <-restart:
				log.Infof("Seed file changed, retrying...")
				continue
			case <-sigChan:
				return nil
			}
		}

		if err := rt.StartAsync(); err != nil {
			return err
		}

		select {
		case <-restart:
			log.Infof("Seed file changed, restarting...")
			if err := rt.Stop(); err != nil {
				log.Warnf("Error during restart shutdown: %v", err)
			}
		case <-sigChan:
			log.Infof("Shutting down")
			return rt.Stop()
		}
	}
}
