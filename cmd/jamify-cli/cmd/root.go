package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "jamify-cli",
	Short: "Jamify chat CLI tool",
	Long: `Jamify CLI is a command-line interface for the Jamify chat service.

Available commands:
  room-id    Derive the canonical room id for a conversation
  send       Send a chat message through a running chat server

Use "jamify-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "Base URL of the chat server")
}
