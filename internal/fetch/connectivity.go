package fetch

import (
	"context"
	"net"
	"time"
)

var defaultProbeAddrs = []string{
	"1.1.1.1:443",
	"8.8.8.8:443",
}

// ConnectivityChecker answers the single up-front question of every search
// round: does any outbound network path exist right now. It dials a small set
// of well-known endpoints and succeeds on the first reachable one.
type ConnectivityChecker struct {
	addrs  []string
	dialer *net.Dialer
}

func NewConnectivityChecker(addrs ...string) *ConnectivityChecker {
	if len(addrs) == 0 {
		addrs = defaultProbeAddrs
	}
	return &ConnectivityChecker{
		addrs:  addrs,
		dialer: &net.Dialer{Timeout: 3 * time.Second},
	}
}

// Check returns nil when at least one probe endpoint is reachable and
// ErrNetworkUnavailable otherwise.
func (c *ConnectivityChecker) Check(ctx context.Context) error {
	for _, addr := range c.addrs {
		conn, err := c.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return ErrNetworkUnavailable
}
