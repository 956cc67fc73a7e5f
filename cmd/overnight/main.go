package main

import (
	"os"

	"github.com/wonny/overnight/cmd/overnight/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
