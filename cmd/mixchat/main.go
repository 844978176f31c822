package main

import (
	"os"

	"mixchat/cmd/mixchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
