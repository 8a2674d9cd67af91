package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	"github.com/dk0164/TMS-MONITOR/core/filter"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
	"github.com/dk0164/TMS-MONITOR/render"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch once and print totals per vehicle",
	RunE:  runReport,
}

// report is the encoded form of the per-vehicle breakdown.
type report struct {
	Vehicles []aggregate.Breakdown `json:"vehicles" yaml:"vehicles"`
	Total    aggregate.Summary     `json:"total" yaml:"total"`
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
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
	rep := report{Vehicles: aggregate.ByVehicle(recs), Total: aggregate.Aggregate(recs)}
	if reportOutput == outputTable {
		return render.New(cmd.OutOrStdout()).Breakdown(rep.Vehicles, rep.Total)
	}
	return encode(cmd.OutOrStdout(), reportOutput, rep)
}
