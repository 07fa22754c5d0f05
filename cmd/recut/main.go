// Package main provides the entry point for the recut CLI.
package main

import (
	"os"

	"github.com/Sumatoshi-tech/recut/cmd/recut/commands"
)

func main() {
	os.Exit(commands.Execute())
}
