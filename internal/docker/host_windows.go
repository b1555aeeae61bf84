//go:build windows

package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
)

const pipeDialWait = time.Second

// dockerPipe is the Docker Desktop engine pipe.
var dockerPipe = `\\.\pipe\docker_engine`

// detectDockerHost dials the Docker Desktop named pipe. Pipes cannot be
// stat'ed like sockets, so a short dial is the existence check.
func detectDockerHost() (string, error) {
	timeout := pipeDialWait
	conn, err := winio.DialPipe(dockerPipe, &timeout)
	if err != nil {
		return "", fmt.Errorf("no Docker named pipe at %s (is Docker running?): %w", dockerPipe, err)
	}
	_ = conn.Close()
	return "npipe://" + strings.ReplaceAll(dockerPipe, `\`, "/"), nil
}
