package main

import (
	"os"

	"github.com/conveyordev/conveyor/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
