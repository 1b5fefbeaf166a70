package main

import (
	"os"

	"github.com/rl1809/locofly/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
