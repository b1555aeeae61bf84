// Package main is the entry point for the uploadkit CLI.
//
// uploadkit finds free ports, runs the file upload server and generates
// Go backend projects. All commands live in internal/cli.
package main

import (
	"github.com/shinji-kodama/uploadkit/internal/cli"
)

// Set via ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
