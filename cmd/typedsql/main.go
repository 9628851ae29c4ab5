// Command typedsql creates, inspects and loads typed SQLite stores declared
// in a YAML schema file.
package main

import (
	"os"

	"github.com/mesh-intelligence/typedsql/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
