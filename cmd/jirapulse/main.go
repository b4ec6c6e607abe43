package main

import (
	"os"

	"github.com/kiracore/jirapulse/cmd/jirapulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
