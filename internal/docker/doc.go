// Package docker provides the Docker integration of the project generator.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows) and a daemon Ping
//   - Labels for the services of a generated docker-compose.yml
//   - `docker compose up -d` for a generated project's database service
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
