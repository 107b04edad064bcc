package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lepostier configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the catalog and writes lepostier.yml (or the --config path).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
