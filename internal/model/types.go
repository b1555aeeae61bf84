// Package model defines the domain types for the uploadkit CLI.
//
// These types are passed between the port allocator, the project
// generator and the upload backend. None of them are persisted except
// through the files the generator writes (.env, docker-compose.yml).
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// StorageBackend selects where the upload backend keeps received files.
type StorageBackend string

const (
	// StorageDisk stores uploads in a local directory (the default).
	StorageDisk StorageBackend = "disk"

	// StorageMinio stores uploads as objects in an S3-compatible bucket.
	StorageMinio StorageBackend = "minio"
)

// String returns the string representation of StorageBackend.
func (s StorageBackend) String() string {
	return string(s)
}

// IsValid checks whether the StorageBackend value is one of the
// predefined backends.
func (s StorageBackend) IsValid() bool {
	switch s {
	case StorageDisk, StorageMinio:
		return true
	default:
		return false
	}
}

// ParseStorageBackend converts a string to a StorageBackend.
// An empty string selects StorageDisk.
func ParseStorageBackend(s string) (StorageBackend, error) {
	if strings.TrimSpace(s) == "" {
		return StorageDisk, nil
	}
	backend := StorageBackend(strings.ToLower(strings.TrimSpace(s)))
	if !backend.IsValid() {
		return "", fmt.Errorf("invalid storage backend: %q (valid: disk, minio)", s)
	}
	return backend, nil
}

// Project describes a backend project produced by the generator.
// It is the aggregate the "new" command builds up step by step and
// finally prints as its result.
type Project struct {
	// Name is the project name. It doubles as the directory name and
	// the Go module path of the generated project.
	Name string `json:"name"`

	// Dir is the absolute path of the generated project directory.
	Dir string `json:"dir"`

	// PreferredPort is the port the user asked for.
	PreferredPort int `json:"preferredPort"`

	// Port is the port actually written into .env. It differs from
	// PreferredPort when the preferred port was busy.
	Port int `json:"port"`

	// ConnectionString is the database URI written into .env.
	ConnectionString string `json:"-"`

	// WithDB is true when a docker-compose.yml database service was generated.
	WithDB bool `json:"withDb"`

	// Services holds all host port assignments made for the project
	// (the app itself and, with WithDB, the database).
	Services []PortAllocation `json:"services,omitempty"`

	// Files lists the generated files relative to Dir.
	Files []string `json:"files,omitempty"`

	// CreatedAt is the time the project was generated.
	CreatedAt time.Time `json:"createdAt"`
}

// URL returns the local address the generated server listens on.
func (p *Project) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.Port)
}

// nameRegex validates project names: no spaces, must start with an
// alphanumeric character, then alphanumerics, hyphens or underscores.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateProjectName checks if the given name can be used as a project
// directory and module name.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid project name %q: no spaces allowed, use camelCase or hyphens", name)
	}
	return nil
}

// PortSpec is a request for one host port: the service that needs it and
// the port it would prefer.
type PortSpec struct {
	// ServiceName identifies the consumer of the port (e.g. "app", "db").
	ServiceName string `json:"serviceName"`

	// PreferredPort is where the upward search starts.
	PreferredPort int `json:"preferredPort"`

	// Protocol is the network protocol (tcp/udp). Defaults to "tcp".
	Protocol string `json:"protocol"`
}

// PortAllocation is the outcome of a PortSpec: the host port that was
// verified bindable at allocation time.
type PortAllocation struct {
	// ServiceName is the consumer of the port.
	ServiceName string `json:"serviceName"`

	// PreferredPort is the port originally requested.
	PreferredPort int `json:"preferredPort"`

	// HostPort is the resolved port (1-65535).
	HostPort int `json:"hostPort"`

	// Protocol is "tcp" or "udp".
	Protocol string `json:"protocol"`
}

// Shifted reports whether the allocator had to move away from the
// preferred port.
func (p *PortAllocation) Shifted() bool {
	return p.HostPort != p.PreferredPort
}

// Validate checks whether the PortAllocation has valid field values.
func (p *PortAllocation) Validate() error {
	if p.ServiceName == "" {
		return fmt.Errorf("port allocation: service name must not be empty")
	}
	if p.HostPort < 1 || p.HostPort > 65535 {
		return fmt.Errorf("port allocation: host port %d out of range (1-65535)", p.HostPort)
	}
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		return fmt.Errorf("port allocation: invalid protocol %q (valid: tcp, udp)", p.Protocol)
	}
	return nil
}

// String formats the allocation as "app: 3000 → 3001/tcp".
func (p *PortAllocation) String() string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	return fmt.Sprintf("%s: %d → %d/%s", p.ServiceName, p.PreferredPort, p.HostPort, proto)
}

// ValidatePortAllocations checks a slice of PortAllocations for
// individual validity and host port uniqueness.
func ValidatePortAllocations(allocations []PortAllocation) error {
	owners := make(map[string]string)

	for i := range allocations {
		if err := allocations[i].Validate(); err != nil {
			return err
		}

		key := fmt.Sprintf("%d/%s", allocations[i].HostPort, allocations[i].Protocol)
		if owner, taken := owners[key]; taken {
			return fmt.Errorf("port allocation: host port %s is used by both %q and %q",
				key, owner, allocations[i].ServiceName)
		}
		owners[key] = allocations[i].ServiceName
	}
	return nil
}

// ExitCode defines the CLI exit codes. Scripts can rely on these values
// to tell failure kinds apart.
type ExitCode int

const (
	ExitSuccess      ExitCode = 0
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates a bad argument, flag or prompt answer.
	ExitInvalidInput ExitCode = 2

	// ExitDockerNotRunning covers a missing daemon and failed compose runs.
	ExitDockerNotRunning ExitCode = 3

	// ExitPortAllocationFailed indicates no bindable port was found
	// below the search limit.
	ExitPortAllocationFailed ExitCode = 4

	// ExitCommandFailed indicates an external command (dependency
	// install, server start, browser) exited unsuccessfully.
	ExitCommandFailed ExitCode = 5

	// ExitPortInUse indicates the real server bind failed even though
	// the port may have been reported free earlier.
	ExitPortInUse ExitCode = 6

	// ExitUserCancelled is returned after Ctrl+C during a search or prompt.
	ExitUserCancelled ExitCode = 7

	// ExitScaffoldFailed indicates a generated file could not be written
	// or verified.
	ExitScaffoldFailed ExitCode = 8
)

// CLIError is an error with the process exit code it should produce.
// Packages below internal/cli return it; Execute turns it into the exit
// status.
type CLIError struct {
	Code    ExitCode
	Message string
	// Err is the cause, if any. It is shown as the JSON "detail".
	Err error
}

// Error returns "message: cause", or just the message without a cause.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError returns a CLIError without a cause.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError returns a CLIError with err as its cause.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
