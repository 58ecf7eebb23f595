package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowhorn/shadowhorn/deepclean"
)

var deepcleanCmd = &cobra.Command{
	Use:   "deepclean <identifier>",
	Short: "Model-clean every stored document, then correlate",
	Long: `Deepclean runs each stored raw document through a model that extracts a
per-platform target schema, persists the cleaned records, and correlates
them into a profile. Progress is printed per platform; cleaning failures
are reported but only an all-platforms failure aborts the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runner, err := a.deepCleaner()
		if err != nil {
			return err
		}

		events := make(chan deepclean.Event, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				switch ev.Type {
				case deepclean.EventCleaning:
					fmt.Fprintf(os.Stderr, "cleaning %s...\n", ev.Platform)
				case deepclean.EventCleaned:
					fmt.Fprintf(os.Stderr, "cleaned %s\n", ev.Platform)
				case deepclean.EventError:
					fmt.Fprintf(os.Stderr, "error %s: %s\n", ev.Platform, ev.Message)
				case deepclean.EventCorrelating:
					fmt.Fprintln(os.Stderr, ev.Message)
				}
			}
		}()

		p, err := runner.Run(ctx, args[0], events)
		close(events)
		<-done
		if err != nil {
			return err
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
	rootCmd.AddCommand(deepcleanCmd)
}
