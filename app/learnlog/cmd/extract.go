package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cchalm/learnlog/internal/archive"
)

var extractFormat string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the question/answer pairs of the archive without storing them",
	Args:  cobra.NoArgs,
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractFormat, "format", "text", "Output format: text or json")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	arc, err := archive.Load(cfg.Input)
	if err != nil {
		return err
	}
	for _, problem := range arc.Problems {
		log.Warn("skipping malformed conversation", "problem", problem.String())
	}

	pairs := archive.Extract(arc, archive.ExtractOptions{FollowThread: cfg.FollowThread})
	switch extractFormat {
	case "text":
		return printPairs(cmd.OutOrStdout(), pairs)
	case "json":
		return printPairsJSON(cmd.OutOrStdout(), pairs)
	default:
		return fmt.Errorf("unknown format '%s'", extractFormat)
	}
}

func printPairs(w io.Writer, pairs []archive.QAPair) error {
	for i, pair := range pairs {
		_, err := fmt.Fprintf(w, "--- #%d (%s)\nQ: %s\nA: %s\n\n", i, pair.ConversationID, pair.Question, pair.Answer)
		if err != nil {
			return fmt.Errorf("failed to write pair: %w", err)
		}
	}
	_, err := fmt.Fprintf(w, "%d pairs\n", len(pairs))
	return err
}

type pairJSON struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
}

func printPairsJSON(w io.Writer, pairs []archive.QAPair) error {
	out := make([]pairJSON, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, pairJSON{ConversationID: pair.ConversationID, Question: pair.Question, Answer: pair.Answer})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode pairs: %w", err)
	}
	return nil
}
