package main

import (
	"os"

	"github.com/UWCubeSat/hs2-egse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
