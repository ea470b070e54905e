package main

import (
	"os"

	"oggopus.click/internal/cli"
)

func main() {
	os.Exit(cli.NewCLI().Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
