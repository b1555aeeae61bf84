// Package port implements port scanning and allocation for the uploadkit
// CLI.
//
// The core algorithm is a bounded upward search:
//
//	for p := max(preferred, 1); p <= limit; p++ { if bindable(p) { return p } }
//
// The Scanner verifies OS-level port availability via net.Listen(), while
// the Allocator adds the search bounds and keeps ports already handed out
// to other services of the same project off the table.
//
// When the search passes the limit (65535 by default), the allocator
// returns a *NoAvailablePortError instead of wrapping around.
package port
