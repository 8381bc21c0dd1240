package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "paygate",
		Short:   "Payment API with a local settlement simulator or an upstream proxy",
		Version: Version,
		// with no subcommand the server starts, like `paygate serve`
		RunE: runServe,
	}
	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
