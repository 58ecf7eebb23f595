package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowhorn/shadowhorn/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <identifier>",
	Short: "Generate an investigation report from the latest correlation",
	Long: `Report builds the comprehensive report (risk assessment, platform
intelligence, indicators, timeline) from the most recent stored
correlation for the identifier. With --audience it additionally writes a
model-generated narrative brief; the local model is preferred for that.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		identifier := args[0]
		doc, err := a.store.LatestCorrelation(ctx, identifier)
		if err != nil {
			return fmt.Errorf("no correlation stored for %s; run correlate first: %w", identifier, err)
		}

		rep := report.Build(doc.Result, identifier)

		audience, _ := cmd.Flags().GetString("audience")
		if audience != "" {
			brief, err := report.Brief(ctx, a.engine, rep, audience)
			if err != nil {
				return err
			}
			fmt.Println(brief)
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		out, err := rep.Export(format)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			if err := os.WriteFile(output, out, 0o600); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s\n", output)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	reportCmd.Flags().String("format", "json", "export format (json, yaml)")
	reportCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	reportCmd.Flags().String("audience", "", "narrative brief audience (combined, osint, threat_intel, offensive, malware)")
	rootCmd.AddCommand(reportCmd)
}
