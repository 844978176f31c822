package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// whoami: print our own mixnet address, as reported by the daemon.
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print our own mixnet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(appCtx.Transport.SelfAddress())
			return nil
		},
	}
}
