package cli

import (
	"github.com/graphquill/graphquill/core/cli/cmd"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

// Execute runs the CLI
func Execute() error {
	if err := cmd.Execute(); err != nil {
		logging.New("cli").Error(err.Error())
		return err
	}
	return nil
}
