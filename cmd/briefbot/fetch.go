package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clobrano/briefbot/internal/llm"
	"github.com/clobrano/briefbot/internal/processor"
)

func fetchCommand() *cobra.Command {
	var summarize bool

	cmd := &cobra.Command{
		Use:   "fetch TEXT...",
		Short: "Load the first URL in TEXT and print its plain text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pipeline, err := processor.NewFromConfig(cfg, nil)
			if err != nil {
				return err
			}

			doc, err := pipeline.Load(ctx, strings.Join(args, " "))
			if processor.IsNothingToDo(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "nothing to load: %v\n", err)
				return nil
			}
			if err != nil {
				return err
			}

			out := doc.Text
			if summarize {
				if out, err = summarizeText(ctx, out); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&summarize, "summarize", false, "summarize the document with the configured LLM")
	return cmd
}

func summarizeText(ctx context.Context, text string) (string, error) {
	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return "", err
	}
	return llm.NewAssistant(provider).Summarize(ctx, text)
}
