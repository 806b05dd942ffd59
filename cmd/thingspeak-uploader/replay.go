package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"thingspeak-uploader/internal/config"
	"thingspeak-uploader/internal/record"
)

var replayInput string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-send measurement sets from a send log",
	Long:  "replay reads a JSONL send log written by the record file mirror and uploads each entry again, honouring the rate limit between sends.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		// Avoid appending to the file being replayed.
		cfg.Mirror.File = ""
		rs, err := newRecorders(cfg, outputNone)
		if err != nil {
			return err
		}
		defer rs.cleanup()
		c, err := newClient(cfg, rs, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stats, err := record.ReplayLogFile(ctx, replayInput, c)
		fmt.Fprintf(cmd.OutOrStdout(), "replayed=%d rejected=%d\n", stats.Sent, stats.Rejected)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a JSONL send log")
	replayCmd.MarkFlagRequired("input")
}
