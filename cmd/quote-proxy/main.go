package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "quote-proxy",
		Short:         "Quote proxy for the upstream item pricing API",
		Long:          "quote-proxy resolves item numbers or ids against the upstream pricing API under its per-minute quota, caches items, and prices them with the nice-number rounding rules.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus QUOTE_* env)")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newResolveCmd(&cfgFile),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
