package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lepostier",
	Short: "Postcard catalog of the Le Postier association",
	Long: `Le Postier serves the association's postcard collection: the browse
page with its detail, zoom and cinema popups, the member area and the
staff dashboard. Operational commands provision and mirror the media
library and import the catalog spreadsheets.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
