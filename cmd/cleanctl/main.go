// Command cleanctl profiles and cleans datasets from the command line.
package main

import (
	"os"

	"github.com/JonMunkholm/datacleaner/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
