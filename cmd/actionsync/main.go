// Package main provides the entry point for the actionsync CLI tool.
package main

import (
	"github.com/surjbayarea/actionsync/cmd/actionsync/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
