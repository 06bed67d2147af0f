package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/skillgrade/internal/replay"
	"github.com/okian/skillgrade/pkg/logger"
)

var replayCmd = &cobra.Command{
	Use:   "replay <requests.jsonl>",
	Short: "Post recorded attempt requests to a running server and summarise the outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.String("url", "http://localhost:9080", "server base URL")
	f.Int("workers", 8, "concurrent clients")
	f.Duration("timeout", 60*time.Second, "per-request timeout")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	reqs, err := replay.Read(f)
	if err != nil {
		return err
	}
	url, _ := cmd.Flags().GetString("url")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	stats, err := replay.Run(cmd.Context(), replay.Config{BaseURL: url, Workers: workers, Timeout: timeout},
		reqs, logger.Named("replay"))
	if err != nil {
		return fmt.Errorf("replay aborted: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), stats)
}
