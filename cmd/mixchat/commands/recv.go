package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// recv: log in, then drain incoming messages, polling for --wait.
func recvCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Drain incoming messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(cmd); err != nil {
				return err
			}

			deadline := time.Now().Add(wait)
			n := 0
			for {
				for _, m := range appCtx.Session.DrainIncoming() {
					fmt.Printf("[%s] %s\n", m.Sender, m.Body)
					n++
				}
				if !time.Now().Before(deadline) {
					break
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(200 * time.Millisecond):
				}
			}
			if n == 0 {
				fmt.Println("no new messages")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "your username")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to keep polling for messages")
	return cmd
}
