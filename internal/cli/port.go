package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/uploadkit/internal/model"
	"github.com/shinji-kodama/uploadkit/internal/port"
)

// portResult is the --json output of the port command.
type portResult struct {
	PreferredPort int  `json:"preferredPort"`
	Port          int  `json:"port"`
	Shifted       bool `json:"shifted"`
}

// NewPortCommand creates the "port" cobra command.
func NewPortCommand() *cobra.Command {
	var maxPort int

	cmd := &cobra.Command{
		Use:   "port [preferred]",
		Short: "Print the first free TCP port at or above the preferred one",
		Long: `Probe TCP ports upward from the preferred port (default 3000) and print
the first one that can be bound. Values below 1 are treated as 1.

The answer is advisory: another process may take the port before you bind it.

Examples:
  uploadkit port
  uploadkit port 8080
  uploadkit port 8080 --max-port 8090 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preferred := port.DefaultPreferredPort
			if len(args) == 1 {
				p, err := strconv.Atoi(args[0])
				if err != nil {
					return model.WrapCLIError(model.ExitInvalidInput,
						fmt.Sprintf("invalid port %q", args[0]), err)
				}
				preferred = p
			}
			return runPort(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), preferred, maxPort)
		},
	}

	cmd.Flags().IntVar(&maxPort, "max-port", 0, "Highest port to probe (default 65535)")

	return cmd
}

// runPort resolves and prints the port.
func runPort(ctx context.Context, stdout, stderr io.Writer, preferred, maxPort int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	allocator := port.NewAllocator(port.NewScanner())
	allocator.MaxPort = maxPort

	start := port.ClampPort(preferred)
	VerboseLog("Probing TCP ports from %d", start)

	p, err := allocator.FindAvailable(ctx, preferred)
	if err != nil {
		return model.WrapCLIError(model.ExitPortAllocationFailed, "port allocation failed", err)
	}

	result := portResult{PreferredPort: start, Port: p, Shifted: p != start}
	if IsJSONOutput() {
		return printJSON(stdout, result)
	}

	if result.Shifted {
		fmt.Fprintf(stderr, "Port %d busy -> using %d\n", start, p)
	}
	_, err = fmt.Fprintln(stdout, p)
	return err
}
