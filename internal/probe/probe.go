// Package probe checks whether local TCP ports are free.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DefaultDialTimeout bounds a single port probe.
const DefaultDialTimeout = 2 * time.Second

// Checker probes ports by attempting a TCP connection.
type Checker struct {
	// Timeout bounds each dial; zero means DefaultDialTimeout.
	Timeout time.Duration
}

// NewChecker constructs a Checker with the default timeout.
func NewChecker() *Checker {
	return &Checker{Timeout: DefaultDialTimeout}
}

// PortFree reports whether nothing accepts connections on host:port. Any dial
// failure (refused, unreachable, timed out) counts as free; only a completed
// connection means the port is taken. The error is reserved for a cancelled ctx.
func (c *Checker) PortFree(ctx context.Context, host string, port int) (bool, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return true, nil
	}
	_ = conn.Close()
	return false, nil
}
