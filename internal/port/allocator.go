package port

import (
	"context"
	"errors"
	"fmt"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

const (
	// minPort is the lowest port the allocator will ever return. Preferred
	// ports below it are clamped up to it.
	minPort = 1

	// maxPort is the highest valid TCP/UDP port number (2^16 - 1).
	maxPort = 65535

	// DefaultPreferredPort is used when the caller has no preference.
	DefaultPreferredPort = 3000
)

// ErrNoAvailablePort is matched (via errors.Is) by every
// *NoAvailablePortError.
var ErrNoAvailablePort = errors.New("no available port")

// NoAvailablePortError reports that every port in [Start, End] failed its
// bind probe. It is a configuration error: the caller should stop rather
// than retry.
type NoAvailablePortError struct {
	Start    int
	End      int
	Protocol string
}

func (e *NoAvailablePortError) Error() string {
	proto := e.Protocol
	if proto == "" {
		proto = "tcp"
	}
	if e.Start > e.End {
		return fmt.Sprintf("no available %s port: preferred port %d is above the limit %d", proto, e.Start, e.End)
	}
	return fmt.Sprintf("no available %s port found in range %d-%d", proto, e.Start, e.End)
}

// Is makes errors.Is(err, ErrNoAvailablePort) true for this error type.
func (e *NoAvailablePortError) Is(target error) bool {
	return target == ErrNoAvailablePort
}

// Prober reports whether a port can be bound at this moment. *Scanner is
// the production implementation; tests substitute their own.
type Prober interface {
	IsPortAvailable(port int, protocol string) bool
}

// Allocator resolves preferred ports to bindable ones.
//
// The algorithm is a bounded upward walk: probe the preferred port, and on
// failure probe the next one, until a probe succeeds or MaxPort is passed.
// Probes are sequential; each probe socket is closed before the next probe
// starts and before a result is returned.
//
// The result is advisory. Another process may take the port between the
// probe and the caller's real bind, so the caller's bind stays the authority.
type Allocator struct {
	// prober performs the actual bind test.
	prober Prober

	// MaxPort is the inclusive upper bound of the search. Zero means 65535.
	MaxPort int

	// reserved holds ports already handed out to other services of the same
	// project. They are skipped even if currently bindable, because nothing
	// listens on them yet.
	reserved []model.PortAllocation
}

// NewAllocator creates a new Allocator with the given Prober.
// The prober must not be nil.
func NewAllocator(prober Prober) *Allocator {
	return &Allocator{
		prober: prober,
	}
}

// Reserve registers allocations the allocator must not hand out again.
func (a *Allocator) Reserve(allocs ...model.PortAllocation) {
	a.reserved = append(a.reserved, allocs...)
}

// ClampPort applies the lower bound: any preferred port below 1 becomes 1.
func ClampPort(preferred int) int {
	if preferred < minPort {
		return minPort
	}
	return preferred
}

// limit returns the effective inclusive upper bound of the search.
func (a *Allocator) limit() int {
	if a.MaxPort <= 0 || a.MaxPort > maxPort {
		return maxPort
	}
	return a.MaxPort
}

// FindAvailable returns the lowest TCP port at or above preferred that could
// be bound at call time.
//
// Preferred values below 1 are treated as 1. When every candidate up to the
// limit fails its probe, a *NoAvailablePortError is returned. The context is
// checked between probes so a caller can abandon a long search.
func (a *Allocator) FindAvailable(ctx context.Context, preferred int) (int, error) {
	return a.find(ctx, ClampPort(preferred), "tcp")
}

// find walks upward from start. Bind failures are not errors here: they
// only move the search to the next candidate.
func (a *Allocator) find(ctx context.Context, start int, protocol string) (int, error) {
	end := a.limit()
	for candidate := start; candidate <= end; candidate++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if a.isPortAvailableForAllocation(candidate, protocol) {
			return candidate, nil
		}
	}
	return 0, &NoAvailablePortError{Start: start, End: end, Protocol: protocol}
}

// AllocatePort resolves a single port request into a PortAllocation.
//
// Parameters:
//   - preferred: where the search starts (clamped to >= 1)
//   - serviceName: the consumer of the port, used for labeling
//   - protocol: "tcp" or "udp" (empty means "tcp")
func (a *Allocator) AllocatePort(ctx context.Context, preferred int, serviceName, protocol string) (*model.PortAllocation, error) {
	if protocol == "" {
		protocol = "tcp"
	}
	if protocol != "tcp" && protocol != "udp" {
		return nil, fmt.Errorf("unsupported protocol %q (valid: tcp, udp)", protocol)
	}

	start := ClampPort(preferred)
	hostPort, err := a.find(ctx, start, protocol)
	if err != nil {
		return nil, err
	}

	return &model.PortAllocation{
		ServiceName:   serviceName,
		PreferredPort: start,
		HostPort:      hostPort,
		Protocol:      protocol,
	}, nil
}

// AllocatePorts processes several port requests for one project and returns
// the allocations in request order.
//
// Each successful allocation is reserved before the next request is served,
// so two services preferring the same port receive different ports.
func (a *Allocator) AllocatePorts(ctx context.Context, specs []model.PortSpec) ([]model.PortAllocation, error) {
	allocations := make([]model.PortAllocation, 0, len(specs))

	for _, ps := range specs {
		alloc, err := a.AllocatePort(ctx, ps.PreferredPort, ps.ServiceName, ps.Protocol)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate port for %s (preferred %d): %w", ps.ServiceName, ps.PreferredPort, err)
		}

		a.Reserve(*alloc)
		allocations = append(allocations, *alloc)
	}

	return allocations, nil
}

// isPortAvailableForAllocation checks the reservation list first and only
// then asks the prober, so reserved ports are never probed.
func (a *Allocator) isPortAvailableForAllocation(port int, protocol string) bool {
	for _, alloc := range a.reserved {
		if alloc.HostPort == port && alloc.Protocol == protocol {
			return false
		}
	}

	return a.prober.IsPortAvailable(port, protocol)
}
