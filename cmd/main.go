package main

import (
	"fmt"
	"os"

	"github.com/noelbox/storefront/internal/app"
	"github.com/noelbox/storefront/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "storefront",
		Short:   "Noelbox storefront: checkout, Stripe webhook and order admin",
		Version: Version,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.MustInit()
		},
		// Running without a subcommand serves, like the container entrypoint expects.
		Run: func(*cobra.Command, []string) {
			app.MustNewApp().Run()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ordersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		Run: func(*cobra.Command, []string) {
			app.MustNewApp().Run()
		},
	}
}
