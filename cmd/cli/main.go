// Package main is the entry point for the qgate CLI binary.
package main

import (
	"os"

	"querygate/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
