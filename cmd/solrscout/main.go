// Package main provides the entry point for the solrscout CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/solrscout/cmd/solrscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
