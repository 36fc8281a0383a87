// Package main provides the entry point for the typedna CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/typedna/cmd/typedna/commands"
	"github.com/Sumatoshi-tech/typedna/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
