package main

import (
	"os"

	"github.com/crimson-sun/auditexport/internal/cli"

	// Register source implementations.
	_ "github.com/crimson-sun/auditexport/internal/connector/discord"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
