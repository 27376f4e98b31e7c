package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ent0n29/recall/internal/companion"
	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recallctl",
		Short:         "recallctl extracts conversational memory from chat transcripts",
		Long:          `recallctl runs the rule-based memory extractor and personality tones against a conversation file, or replays one against a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newExtractCmd(),
		newChatCmd(),
		newPersonalitiesCmd(),
		newRulesCmd(),
		newReplayCmd(),
	)
	return root
}

func newExtractCmd() *cobra.Command {
	var (
		format        string
		mergeEvidence bool
	)
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract memory from a conversation (JSON or YAML, - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := loadTurns(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			svc := companion.NewService(companion.Config{MergeEvidence: mergeEvidence})
			mem := svc.Extract(cmd.Context(), "", turns)
			return writeFormatted(cmd.OutOrStdout(), format, mem)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json|yaml")
	cmd.Flags().BoolVar(&mergeEvidence, "merge-evidence", false, "collect evidence from every matching turn")
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		personalityID string
		format        string
	)
	cmd := &cobra.Command{
		Use:   "chat FILE",
		Short: "Compose the memory-aware reply for a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := loadTurns(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			svc := companion.NewService(companion.Config{})
			res := svc.Chat(cmd.Context(), "", "cli", turns, personality.Parse(personalityID))
			if format == "text" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), format, res)
		},
	}
	cmd.Flags().StringVarP(&personalityID, "personality", "p", string(personality.Neutral), "personality id")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text|json|yaml")
	return cmd
}

func newPersonalitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personalities",
		Short: "List personalities with a sample rendering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tSAMPLE")
			for _, v := range personality.Preview(personality.DemoReply) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Label, v.Reply)
			}
			return tw.Flush()
		},
	}
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the active extraction rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeRules(cmd.OutOrStdout(), memory.DefaultRules())
		},
	}
}

func writeRules(w io.Writer, rules []memory.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tCONFIDENCE\tSTATEMENT")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", r.ID, r.Category, r.Confidence, r.Statement)
	}
	return tw.Flush()
}
