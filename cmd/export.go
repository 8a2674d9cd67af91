package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/core/filter"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
	"github.com/dk0164/TMS-MONITOR/pkg/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch once and write every matching record, newest first",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv or json")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != outputJSON {
		return fmt.Errorf("unsupported export format %q (want csv or json)", exportFormat)
	}
	logger.SetOutput(cmd.ErrOrStderr())
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := rt.load(cmd.Context())
	if err != nil {
		return err
	}
	recs := filter.Apply(st.Records, st.Predicates)
	slices.Reverse(recs)
	if exportFormat == outputJSON {
		return export.WriteJSON(cmd.OutOrStdout(), recs)
	}
	return export.WriteCSV(cmd.OutOrStdout(), recs)
}
