package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <username>",
		Short: "Look up another user's public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact, err := appCtx.Session.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\n%s", contact.Username, contact.PublicKey)
			return nil
		},
	}
}
