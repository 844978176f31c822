package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixchat/internal/domain"
)

// history <contact>: print the stored conversation with one contact.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <contact>",
		Short: "Print the message history with a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := appCtx.Store.Messages(username, args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				who := username
				if m.Direction == domain.DirectionReceived {
					who = m.Contact
				}
				fmt.Printf("%s [%s] %s\n", m.Timestamp.Format("2006-01-02 15:04"), who, m.Body)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "your username")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
