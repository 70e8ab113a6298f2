package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mydailyprop/internal/engine"
)

var (
	runURL    string
	runFormat string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyse a single editorial and stream the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runFormat != formatText && runFormat != formatJSON {
			return eris.Errorf("unknown format %q (want %s or %s)", runFormat, formatText, formatJSON)
		}

		eng, err := initEngine("run", nil)
		if err != nil {
			return err
		}

		return streamRun(ctx, eng, runURL, runFormat, cmd.OutOrStdout())
	},
}

// streamRun starts a run and renders its events to w until the run ends.
// It returns the run's failure, if any.
func streamRun(ctx context.Context, eng *engine.Engine, url, format string, w io.Writer) error {
	r, err := newRenderer(format, w, eng.Graph())
	if err != nil {
		return err
	}

	run, err := eng.StartRun(ctx, url)
	if err != nil {
		return err
	}
	defer run.Close()

	zap.L().Info("run started", zap.String("run_id", run.ID), zap.String("url", run.URL))

	for ev := range run.Events() {
		if err := r.Render(ev); err != nil {
			return eris.Wrap(err, "render event")
		}
	}

	return run.Wait(context.Background())
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "editorial URL (required)")
	runCmd.Flags().StringVar(&runFormat, "format", formatText, "output format: text or json")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}
