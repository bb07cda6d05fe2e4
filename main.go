package main

import (
	"os"

	"github.com/netrixframework/timeoutd/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
