// Package main is the entry point for the tallyctl binary.
package main

import (
	"os"

	cli "tallybot/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
