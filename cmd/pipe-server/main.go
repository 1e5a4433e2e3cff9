package main

import (
	"fmt"
	"os"

	"github.com/alxayo/pipe/internal/logger"
	"github.com/spf13/cobra"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

var logLevel string

func main() {
	root := &cobra.Command{
		Use:   "pipe-server",
		Short: "Runs a configured pipe media-processing topology",
		Long:  "pipe-server loads a YAML stage topology and drives it on an event-loop pump manager until interrupted.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init()
			if err := logger.SetLevel(logLevel); err != nil {
				fmt.Fprintf(os.Stderr, "warning: invalid log level %q, using default\n", logLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
