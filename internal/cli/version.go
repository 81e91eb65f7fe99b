package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rprtr258/cpuload/internal/core"
)

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print cpuload version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), core.Version)
			return err
		},
	}
}
