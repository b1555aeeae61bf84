package docker

import (
	"context"
	"errors"
	"sort"

	"github.com/shinji-kodama/uploadkit/internal/model"
	"github.com/shinji-kodama/uploadkit/internal/runner"
)

// ComposeUp runs `docker compose -f <file>... up -d` in projectDir.
//
// envVars are exported to compose for variable substitution. The generated
// compose file reads the database host port from them, so the port chosen
// by the allocator reaches the container without rewriting the file.
func ComposeUp(ctx context.Context, projectDir string, composeFiles []string, envVars map[string]string) error {
	args := append(buildComposeArgs(composeFiles), "up", "-d")

	r := &runner.Runner{Env: composeEnv(envVars)}
	if _, err := r.Run(ctx, projectDir, "docker", args...); err != nil {
		return composeError(err)
	}
	return nil
}

// buildComposeArgs passes every compose file with its own -f flag; compose
// merges them in order.
func buildComposeArgs(composeFiles []string) []string {
	args := make([]string, 0, len(composeFiles)*2+3)
	args = append(args, "compose")
	for _, f := range composeFiles {
		args = append(args, "-f", f)
	}
	return args
}

// composeEnv turns envVars into sorted KEY=VALUE pairs.
func composeEnv(envVars map[string]string) []string {
	env := make([]string, 0, len(envVars))
	for k, v := range envVars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// composeError keeps the runner's message, which names the command and
// carries its stderr, but reports the failure as a Docker problem.
func composeError(err error) error {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return model.WrapCLIError(model.ExitDockerNotRunning, cliErr.Message, cliErr.Err)
	}
	return model.WrapCLIError(model.ExitDockerNotRunning, "docker compose failed", err)
}
