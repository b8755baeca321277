package serial

import (
	"io"
)

// Port is a serial link to the monitor firmware. NativePort is the real
// device; tests use a pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards any buffered input
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate; the monitor firmware runs its UART at 115200
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration the monitor firmware expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
