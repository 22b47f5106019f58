// synclined is the local sync daemon: it keeps per-profile entity
// collections current against the sync API and serves them to in-process
// consumers.
package main

import (
	"fmt"
	"os"

	"github.com/msantori/syncline/internal/app"
	"github.com/msantori/syncline/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var profileFlag string

	root := &cobra.Command{
		Use:           "synclined",
		Short:         "Local entity sync daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := profile.Resolve(profileFlag)
			if err := profile.ValidateName(name); err != nil {
				return err
			}
			fx.New(app.Module(app.Params{ProfileName: name})).Run()
			return nil
		},
	}

	ver := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(run, ver)
	return root
}
