package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <recipient> <message>: log in, then sign and send one message.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <recipient> <message>",
		Short: "Sign and send a direct message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(cmd); err != nil {
				return err
			}
			if err := appCtx.Session.SendDirectMessage(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "your username")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// requireLogin authenticates the --user identity for commands that need a
// live session.
func requireLogin(cmd *cobra.Command) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	ok, err := appCtx.Session.Login(cmd.Context(), username, passphrase)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("login rejected")
	}
	return nil
}
