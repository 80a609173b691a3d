// Package env configures master and slave processes from flags and
// environment variables.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/bus"
	"github.com/robotalks/rs4b/pkg/caps"
	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/protocol"
)

// Config provides the options shared by master and slave processes.
type Config struct {
	// Port is the serial device attached to the bus, e.g. /dev/ttyUSB0.
	Port        string
	Baud        int
	ReadTimeout time.Duration
	InvertRTS   bool
	GuardBefore time.Duration
	GuardAfter  time.Duration
	Interval    time.Duration

	// Sim replaces the port with an in-memory line carrying Sim simulated
	// slaves. Master only.
	Sim int
	// ResponseWindow bounds the wait for replies. Master only.
	ResponseWindow time.Duration
	// MQTTBrokerURL enables the registry mirror, e.g.
	// mqtt://host:1883/rs4b/. Master only.
	MQTTBrokerURL string
	// Scan discovers the bus periodically and identifies new devices,
	// zero disables it. Master only.
	Scan time.Duration
	// Expire drops devices missing from scans for that long. Master only.
	Expire time.Duration

	// Caps is the capability declaration file, the default declaration is
	// used when empty.
	Caps string
	// ID overrides the identifier derived from the machine id. Slave only.
	ID string
}

var defaultConfig = Config{
	Port:           "/dev/ttyUSB0",
	Baud:           bus.DefaultBaudRate,
	ReadTimeout:    time.Millisecond,
	GuardBefore:    bus.DefaultGuardBefore,
	GuardAfter:     bus.DefaultGuardAfter,
	ResponseWindow: protocol.DefaultResponseWindow,
}

func init() {
	loadEnv(&defaultConfig, os.Getenv)
}

func loadEnv(c *Config, getenv func(string) string) {
	if val := getenv("RS4B_PORT"); val != "" {
		c.Port = val
	}
	if val := getenv("RS4B_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil && baud > 0 {
			c.Baud = baud
		} else {
			glog.Warningf("RS4B_BAUD ignored: %q", val)
		}
	}
	if val := getenv("RS4B_CAPS"); val != "" {
		c.Caps = val
	}
	if val := getenv("RS4B_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
}

// SetupFlags sets the command line flags common to both roles.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial device of the bus")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout")
	flag.BoolVar(&defaultConfig.InvertRTS, "invert-rts", defaultConfig.InvertRTS, "Enable the line driver on RTS low")
	flag.DurationVar(&defaultConfig.GuardBefore, "guard-before", defaultConfig.GuardBefore, "Delay between enabling the driver and writing")
	flag.DurationVar(&defaultConfig.GuardAfter, "guard-after", defaultConfig.GuardAfter, "Delay between draining and releasing the driver")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Loop interval")
	flag.StringVar(&defaultConfig.Caps, "caps", defaultConfig.Caps, "Capability declaration file (YAML)")
}

// SetupMasterFlags sets the command line flags of the master.
func SetupMasterFlags() {
	SetupFlags()
	flag.IntVar(&defaultConfig.Sim, "sim", defaultConfig.Sim, "Simulate a bus with the number of slaves")
	flag.DurationVar(&defaultConfig.ResponseWindow, "window", defaultConfig.ResponseWindow, "Response window, 0 waits forever")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL to mirror the registry")
	flag.DurationVar(&defaultConfig.Scan, "scan", defaultConfig.Scan, "Discovery period, 0 disables scanning")
	flag.DurationVar(&defaultConfig.Expire, "expire", defaultConfig.Expire, "Drop devices not seen for the duration, 0 keeps them")
}

// SetupSlaveFlags sets the command line flags of the slave.
func SetupSlaveFlags() {
	SetupFlags()
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Device identifier, derived from the machine id by default")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// OpenPort opens the serial port.
func (c *Config) OpenPort() (*bus.SerialPort, error) {
	port, err := bus.OpenSerial(c.Port, c.Baud, c.ReadTimeout)
	if err != nil {
		return nil, err
	}
	port.InvertRTS = c.InvertRTS
	if err = port.SetTransmit(false); err != nil {
		port.Close()
		return nil, err
	}
	glog.Infof("bus on %s at %d baud", c.Port, c.Baud)
	return port, nil
}

// NewTransceiver wraps a port with the configured guard intervals.
func (c *Config) NewTransceiver(port bus.Port) *bus.Transceiver {
	tr := bus.NewTransceiver(port)
	tr.GuardBefore, tr.GuardAfter = c.GuardBefore, c.GuardAfter
	return tr
}

// DeviceID returns the configured identifier or the one of this host.
func (c *Config) DeviceID() (ident.ID, error) {
	if c.ID != "" {
		return ident.Parse(c.ID)
	}
	return ident.Local()
}

// Descriptor builds the capability descriptor of a device.
func (c *Config) Descriptor(id ident.ID) (*caps.Descriptor, error) {
	if c.Caps == "" {
		return caps.Default(id)
	}
	desc, err := caps.LoadFile(c.Caps, id)
	if err != nil {
		return nil, fmt.Errorf("capabilities of %s: %w", id, err)
	}
	return desc, nil
}
