//go:build !windows

package docker

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// detectDockerHost returns the platform's default Docker socket.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{"/var/run/docker.sock"})
	case "darwin":
		candidates := []string{"/var/run/docker.sock"}
		// Docker Desktop without the privileged helper.
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".docker", "run", "docker.sock"))
		}
		return detectUnixSocket(candidates)
	}
	return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}
