package cmd

import (
	"fmt"
	"os"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/room"
	"github.com/spf13/cobra"
)

var roomType string

// roomIDCmd represents the room-id command
var roomIDCmd = &cobra.Command{
	Use:   "room-id <id> [id]",
	Short: "Derive the canonical room id for a conversation",
	Long: `Derive the canonical room id for a conversation without contacting a server.

Room ids are deterministic: the same inputs always produce the same id, so any
process can address a conversation without coordinating with the others.

Examples:
  jamify-cli room-id alice bob                 # private conversation (order does not matter)
  jamify-cli room-id --type event summer-fest  # event room
  jamify-cli room-id --type jam friday-session # jam room`,
	Args: cobra.RangeArgs(1, 2),
	Run:  roomIDHandler,
}

func roomIDHandler(cmd *cobra.Command, args []string) {
	switch roomType {
	case "private":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "Error: private rooms need exactly two user ids")
			os.Exit(1)
		}
		fmt.Println(room.DerivePrivateRoomID(args[0], args[1]))
	case "event":
		fmt.Println(room.DeriveEventRoomID(args[0]))
	case "jam":
		fmt.Println(room.DeriveJamRoomID(args[0]))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown room type %q (expected private, event or jam)\n", roomType)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(roomIDCmd)

	roomIDCmd.Flags().StringVarP(&roomType, "type", "t", "private", "Room type (private, event, jam)")
}
