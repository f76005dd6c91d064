package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string

	serveCmd := newServeCommand(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "autosub",
		Short:         "Generate SRT subtitles from uploaded audio and video",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand starts the server.
		RunE: serveCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $AUTOSUB_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newJobsCommand(&configFlag))

	return rootCmd
}
