package main

import (
	"os"

	"github.com/srtux/sre-agent-sub000/cmd/sre-agent/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
