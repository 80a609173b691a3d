package bus

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the bus speed used by RS4Brick nodes.
const DefaultBaudRate = 9600

// SerialPort is a Port backed by a serial device. RTS drives the
// direction pin of the RS-485 transceiver.
type SerialPort struct {
	serial.Port
	// InvertRTS is set for adapters enabling the driver on RTS low.
	InvertRTS bool
}

// OpenSerial opens a serial device in receive mode.
func OpenSerial(name string, baudRate int, readTimeout time.Duration) (*SerialPort, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if readTimeout <= 0 {
		readTimeout = time.Millisecond
	}
	if err = p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	sp := &SerialPort{Port: p}
	if err = sp.SetTransmit(false); err != nil {
		p.Close()
		return nil, err
	}
	return sp, nil
}

// SetTransmit implements Port.
func (p *SerialPort) SetTransmit(on bool) error {
	return p.Port.SetRTS(on != p.InvertRTS)
}
