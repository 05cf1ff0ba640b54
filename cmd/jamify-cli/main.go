package main

import "github.com/DaddyAndYungeenCoders/jamify-chat/cmd/jamify-cli/cmd"

func main() {
	cmd.Execute()
}
