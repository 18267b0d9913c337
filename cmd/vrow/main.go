// Package main is the entry point for the vrow binary.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/virtualrow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
