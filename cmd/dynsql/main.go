// Package main provides the dynsql command.
package main

import (
	"os"

	"github.com/leapstack-labs/dynsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
