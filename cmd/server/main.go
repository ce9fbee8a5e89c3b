// Command server runs the wordvault scheduling core: the spaced
// repetition engine and its write-behind sync pipeline, exposed over a
// small HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "wordvault",
		Short:         "Spaced-repetition vocabulary trainer backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return fmt.Errorf("initializing application: %w", err)
			}
			return app.run(cmd.Context())
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
