package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/api/dashboard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh loop behind the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.ctrl.Start(ctx); err != nil {
		return err
	}
	rt.serveMetrics(ctx)

	mux := http.NewServeMux()
	dashboard.Register(mux, rt.ctrl)
	srv := &http.Server{Addr: rt.cfg.API.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	rt.log.Infof("serving dashboard on %s", rt.cfg.API.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
