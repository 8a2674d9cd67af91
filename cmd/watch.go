package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dk0164/TMS-MONITOR/app"
	"github.com/dk0164/TMS-MONITOR/core/state"
	"github.com/dk0164/TMS-MONITOR/infra/logger"
	"github.com/dk0164/TMS-MONITOR/render"
)

const (
	clearScreen = "\033[H\033[2J"
	keyHelp     = "[r] refresh  [n] next  [p] previous  [<number>] go to page  [q] quit"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live dashboard in the terminal",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.SetOutput(cmd.ErrOrStderr())

	rt, err := newRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.serveMetrics(ctx)

	out := cmd.OutOrStdout()
	r := render.New(out)
	updates := rt.ctrl.Subscribe()
	draw(out, r, rt.ctrl.State())

	if err := rt.ctrl.Start(ctx); err != nil {
		return err
	}
	if err := rt.ctrl.SetFilters(rt.ctrl.State().Predicates); err != nil {
		return err
	}
	if page > 1 {
		rt.ctrl.SetPage(page)
	}

	keys := readLines(cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			for len(updates) > 0 {
				st = <-updates
			}
			draw(out, r, st)
		case line, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if handleKey(ctx, rt.ctrl, line) {
				return nil
			}
		}
	}
}

func draw(w io.Writer, r *render.Renderer, st state.State) {
	fmt.Fprint(w, clearScreen)
	if err := r.Dashboard(st); err != nil {
		return
	}
	fmt.Fprintln(w, keyHelp)
}

// handleKey applies one line of keyboard input and reports whether to quit.
func handleKey(ctx context.Context, ctrl *app.Controller, line string) bool {
	line = strings.TrimSpace(strings.ToLower(line))
	switch line {
	case "":
	case "q", "quit":
		return true
	case "r":
		go func() { _, _ = ctrl.Refresh(ctx, state.Initial) }()
	case "n":
		ctrl.NextPage()
	case "p":
		ctrl.PrevPage()
	default:
		if n, err := strconv.Atoi(line); err == nil {
			ctrl.SetPage(n)
		}
	}
	return false
}

// readLines streams lines from r until EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}
