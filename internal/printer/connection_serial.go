package printer

import (
	"sync"

	"github.com/tarm/serial"
)

// SerialConnection is an open serial port
type SerialConnection struct {
	port *serial.Port
	mu   sync.Mutex
}

// ConnectSerial opens device at the given baud rate
func ConnectSerial(device string, baud int) (*SerialConnection, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, err
	}

	return &SerialConnection{port: port}, nil
}

// Write sends data to the printer
func (c *SerialConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.port.Write(data)
}

// Close closes the port
func (c *SerialConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.port.Close()
}
