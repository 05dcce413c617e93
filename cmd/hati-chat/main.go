// Command hati-chat is a terminal client for the hati WebSocket endpoint.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, sessionID, userID, userName string

	cmd := &cobra.Command{
		Use:           "hati-chat",
		Short:         "Chat with hati from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connecting to %s...\n", addr)

			client, err := NewClient(addr)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.SendHello(sessionID, userID, userName); err != nil {
				return err
			}
			fmt.Fprintf(out, "Session established: %s\n", client.SessionID())
			fmt.Fprintln(out, "Type a message and press Enter to send. /quit exits.")

			go client.ReadMessages(out)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				input := strings.TrimSpace(scanner.Text())
				switch input {
				case "":
					continue
				case "/quit":
					fmt.Fprintln(out, "Sampai jumpa!")
					return nil
				}
				if err := client.SendChat(input); err != nil {
					return fmt.Errorf("send: %w", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8000/ws", "WebSocket server address")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&userName, "name", "", "display name")
	return cmd
}
