package main

import (
	"os"

	"github.com/mattjoyce/obsq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
