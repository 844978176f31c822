package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Create an identity and register it with the directory server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			ok, err := appCtx.Session.Register(cmd.Context(), args[0], passphrase)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("registration rejected (username may be taken)")
			}
			fmt.Printf("registered as %s\n", args[0])
			return nil
		},
	}
}
