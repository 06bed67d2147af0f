package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/skillgrade/internal/config"
	"github.com/okian/skillgrade/internal/domain/grading"
	"github.com/okian/skillgrade/internal/domain/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Grade one submission read from a file or stdin and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("game", "", "game id from the registry")
	f.String("player", "cli", "player id")
	f.String("category", "", "skill category when the game has none")
	f.Int("hints", 0, "hints used")
	f.Bool("persist", false, "store the attempt in the configured store instead of memory")
	_ = scoreCmd.MarkFlagRequired("game")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text, err := readSubmission(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	if persist, _ := cmd.Flags().GetBool("persist"); !persist {
		cfg.StoreDriver = config.StoreMemory
	}
	svc, err := startService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Stop(ctx) }()

	gameID, _ := cmd.Flags().GetString("game")
	playerID, _ := cmd.Flags().GetString("player")
	category, _ := cmd.Flags().GetString("category")
	hints, _ := cmd.Flags().GetInt("hints")

	res, err := svc.Grade(ctx, grading.Request{
		PlayerID:       playerID,
		GameID:         gameID,
		SkillCategory:  category,
		SubmissionText: text,
		HintsUsed:      hints,
	})
	var dup *grading.DuplicateError
	if errors.As(err, &dup) && dup.Existing != nil {
		return printJSON(cmd.OutOrStdout(), types.ConflictResponse{
			Code: "duplicate_submission", Message: err.Error(), Attempt: dup.Existing,
		})
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), types.NewAttemptResponse(&res))
}

func readSubmission(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read submission: %w", err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
