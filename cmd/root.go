package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/core/filter"
)

var (
	cfgPath   string
	selection filter.Selection
	page      int
)

var rootCmd = &cobra.Command{
	Use:          "tms",
	Short:        "TMS delivery dashboard",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file (yaml or json)")
	f.StringVar(&selection.Start, "start", "", "first recorded date to include (YYYY-MM-DD)")
	f.StringVar(&selection.End, "end", "", "last recorded date to include (YYYY-MM-DD)")
	f.StringVar(&selection.Vehicle, "vehicle", filter.Any, "vehicle registration")
	f.StringVar(&selection.Customer, "customer", filter.Any, "customer name")
	f.StringVar(&selection.Status, "status", filter.Any, "delivery status")
	f.IntVar(&page, "page", 1, "page to show")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
