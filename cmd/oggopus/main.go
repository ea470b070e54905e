// Command oggopus inspects, decodes and catalogs Ogg Opus files.
package main

import (
	"os"

	"oggopus.click/internal/cli"
)

func main() {
	c := cli.NewCLI()
	os.Exit(c.Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
