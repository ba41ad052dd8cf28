// Package main is the entry point for the courtvision CLI.
package main

import (
	"os"

	"github.com/courtvision/prediction-api/cmd/courtvision/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
