package main

import (
	"os"

	"github.com/cyberinferno/gamesession/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
