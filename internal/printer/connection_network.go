package printer

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"
)

// NetworkConnection is a raw TCP connection to a printer, usually on port 9100
type NetworkConnection struct {
	conn net.Conn
	mu   sync.Mutex
}

// ConnectNetwork dials host:port, giving up after timeout
func ConnectNetwork(ctx context.Context, host string, port int, timeout time.Duration) (*NetworkConnection, error) {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	return &NetworkConnection{conn: conn}, nil
}

// Write sends data to the printer
func (c *NetworkConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.Write(data)
}

// Close closes the socket
func (c *NetworkConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.Close()
}
