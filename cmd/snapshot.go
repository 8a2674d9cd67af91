package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/api/dashboard"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
	"github.com/dk0164/TMS-MONITOR/render"
)

var snapshotOutput string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch once and print the selected page",
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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
	if snapshotOutput == outputTable {
		return render.New(cmd.OutOrStdout()).Dashboard(st)
	}
	return encode(cmd.OutOrStdout(), snapshotOutput, dashboard.NewResponse(st))
}
