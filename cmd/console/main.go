// Package main provides the console CLI.
package main

import (
	"os"

	"github.com/normaladmin/go-console-sdk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
