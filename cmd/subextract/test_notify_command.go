package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subextract/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if ok, err := ctx.writeStructured(cmd, resp); ok {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Sent {
					fmt.Fprintln(out, "Test notification sent")
					return nil
				}
				if resp.Message != "" {
					fmt.Fprintf(out, "Test notification not sent: %s\n", resp.Message)
					return nil
				}
				fmt.Fprintln(out, "Test notification not sent")
				return nil
			})
		},
	}
}
