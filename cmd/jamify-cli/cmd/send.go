package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	sendSender string
	sendDest   string
	sendRoom   string
	sendToken  string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <content>",
	Short: "Send a chat message through a running chat server",
	Long: `Send a chat message through a running chat server's HTTP API.

The message must target either a user (--to) or a room (--room), but not
both. The server derives the private room id itself when --to is used.

Examples:
  jamify-cli send --from alice --to bob "hello"
  jamify-cli send --from alice --room event_summer-fest "doors open at 8"
  jamify-cli send --from alice --to bob --token "$JWT" "hello"`,
	Args: cobra.ExactArgs(1),
	Run:  sendHandler,
}

func sendHandler(cmd *cobra.Command, args []string) {
	body, err := json.Marshal(map[string]string{
		"senderId": sendSender,
		"destId":   sendDest,
		"roomId":   sendRoom,
		"content":  args[0],
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode message: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if sendToken != "" {
		req.Header.Set("Authorization", "Bearer "+sendToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "Error: server returned %s: %s\n", resp.Status, out)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendSender, "from", "", "Sender user id")
	sendCmd.Flags().StringVar(&sendDest, "to", "", "Destination user id (private conversation)")
	sendCmd.Flags().StringVar(&sendRoom, "room", "", "Destination room id")
	sendCmd.Flags().StringVar(&sendToken, "token", "", "Bearer token for authenticated servers")
	sendCmd.MarkFlagRequired("from")
}
