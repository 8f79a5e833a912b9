package main

import (
	"os"

	"github.com/arthasutra/backend/cmd/arthasutra/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
