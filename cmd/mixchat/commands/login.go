package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Prove possession of an existing identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			ok, err := appCtx.Session.Login(cmd.Context(), args[0], passphrase)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("login rejected")
			}
			fmt.Printf("logged in as %s\n", args[0])
			return nil
		},
	}
}
