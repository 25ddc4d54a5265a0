package main

import (
	"os"

	"github.com/wonny/condor/cmd/condor/commands"
)

// main is the entry point for the condor CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/condor [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
