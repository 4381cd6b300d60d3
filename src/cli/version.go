package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relaybotctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdout, Version)
			return nil
		},
	}
}
