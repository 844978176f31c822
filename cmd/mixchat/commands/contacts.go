package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// contacts: list the cached contacts of --user. Purely local.
func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List cached contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := appCtx.Store.Contacts(username)
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Println("no contacts")
				return nil
			}
			for _, c := range contacts {
				fmt.Println(c.Username)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "your username")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
