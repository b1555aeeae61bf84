// Package model defines the domain types and value objects for the
// uploadkit CLI.
//
// This package contains pure data structures with no external dependencies:
// the generated Project, port requests (PortSpec) and their outcomes
// (PortAllocation), and the storage backend selector used by the upload
// server.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
