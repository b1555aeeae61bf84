package docker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// pingTimeout bounds a single daemon Ping. Docker Desktop can take a few
// seconds to answer the first request after waking up.
const pingTimeout = 5 * time.Second

// Client is a thin wrapper over the Engine SDK client. The generator only
// asks whether a daemon is there before it runs compose.
type Client struct {
	api *client.Client
}

// NewClient connects to DOCKER_HOST when set, otherwise to the first
// platform socket that exists:
//
//	linux    /var/run/docker.sock
//	darwin   /var/run/docker.sock, ~/.docker/run/docker.sock
//	windows  npipe:////./pipe/docker_engine
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		var err error
		if host, err = detectDockerHost(); err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
	}
	return newClientWithHost(host)
}

// newClientWithHost negotiates the API version with the daemon instead of
// pinning one, so older Docker Engine installs work too.
func newClientWithHost(host string) (*Client, error) {
	api, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("cannot create Docker client for %q", host), err)
	}
	return &Client{api: api}, nil
}

// detectUnixSocket returns the first candidate socket that exists. It only
// checks the file; Ping checks the daemon behind it.
func detectUnixSocket(candidates []string) (string, error) {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at %v; is Docker running?", candidates)
}

// Ping returns the API version the daemon negotiated.
func (c *Client) Ping(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ping, err := c.api.Ping(ctx)
	if err != nil {
		return "", model.WrapCLIError(model.ExitDockerNotRunning, "Docker daemon is not responding; is Docker running?", err)
	}
	return ping.APIVersion, nil
}

// Close releases the client's connections.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}

// EnsureDaemon opens a client, pings the daemon and closes the client.
func EnsureDaemon(ctx context.Context) (string, error) {
	c, err := NewClient()
	if err != nil {
		return "", err
	}
	defer func() { _ = c.Close() }()

	return c.Ping(ctx)
}
