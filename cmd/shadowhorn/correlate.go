package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowhorn/shadowhorn/backend"
	"github.com/shadowhorn/shadowhorn/profile"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <identifier>",
	Short: "Correlate stored documents into one profile",
	Long: `Correlate merges the stored raw documents for an identifier into the
canonical profile. Fast mode is rule-based and needs no model. Deep mode
sends the collected data to a model backend; self mode additionally takes
an analysis prompt of your own.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		identifier := args[0]
		mode, _ := cmd.Flags().GetString("mode")
		preferred, _ := cmd.Flags().GetString("backend")
		prompt, _ := cmd.Flags().GetString("prompt")

		docs, err := a.store.RawDocuments(ctx, identifier)
		if err != nil {
			return err
		}

		p, err := a.engine.Correlate(ctx, docs, identifier, mode, preferred, prompt)
		if err != nil {
			return err
		}

		if mode == "" {
			mode = backend.ModeFast
		}
		doc := profile.CorrelationDocument{
			Identifier:  identifier,
			Mode:        mode,
			Prompt:      prompt,
			CollectedAt: time.Now().UTC(),
			Result:      p,
		}
		if err := a.store.SaveCorrelation(ctx, doc); err != nil {
			a.logger.Warn("failed to persist correlation", "error", err)
		}

		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	correlateCmd.Flags().String("mode", "fast", "correlation mode (fast, deep, self)")
	correlateCmd.Flags().String("backend", "", "model backend (openai, local, auto)")
	correlateCmd.Flags().String("prompt", "", "analysis prompt for self mode")
	rootCmd.AddCommand(correlateCmd)
}
