package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect <identifier>",
	Short: "Collect OSINT data for an identifier across platforms",
	Long: `Collect runs every configured platform collector concurrently for the
given identifier (a username, email address, or profile URL) and stores
the raw documents. Platforms without credentials are skipped; a platform
failure never aborts the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runner, err := a.collector(ctx)
		if err != nil {
			return err
		}

		result := runner.Run(ctx, args[0])
		for _, doc := range result.Documents {
			fmt.Printf("collected %s\n", doc.Platform)
		}
		for platform, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "failed %s: %s\n", platform, msg)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			out, err := json.MarshalIndent(map[string]any{
				"identifier": args[0],
				"collected":  len(result.Documents),
				"errors":     result.Errors,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().Bool("json", false, "print a JSON summary")
	rootCmd.AddCommand(collectCmd)
}
