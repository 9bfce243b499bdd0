package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/provekit/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		// Needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "provekit version %s\n", version.Full())
		},
	}
}
