package env

import (
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/bus"
	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/protocol"
	"github.com/robotalks/rs4b/pkg/registry"
	"github.com/robotalks/rs4b/pkg/registry/mqtt"
)

// MasterEnv is the env of the bus master.
type MasterEnv struct {
	Config   *Config
	Registry *registry.Registry
	Master   *protocol.Master
	// Mirror is nil without a broker URL.
	Mirror *mqtt.Mirror
	// Scanner is nil unless periodic discovery is enabled.
	Scanner *protocol.Scanner
	// Slaves are the simulated devices in sim mode.
	Slaves []*protocol.Slave

	port io.Closer
}

// NewMasterEnv creates MasterEnv from config.
func (c *Config) NewMasterEnv() (*MasterEnv, error) {
	e := &MasterEnv{Config: c, Registry: registry.New()}
	var port bus.Port
	if c.Sim > 0 {
		line := bus.NewLine()
		port = line.Tap()
		for n := 1; n <= c.Sim; n++ {
			slave, err := c.newSlave(line.Tap(), ident.FromHardware(uint32(n)))
			if err != nil {
				return nil, err
			}
			e.Slaves = append(e.Slaves, slave)
		}
		glog.Infof("simulated bus with %d slaves", c.Sim)
	} else {
		serialPort, err := c.OpenPort()
		if err != nil {
			return nil, err
		}
		port, e.port = serialPort, serialPort
	}
	e.Master = protocol.NewMaster(c.NewTransceiver(port), e.Registry)
	e.Master.ResponseWindow = c.ResponseWindow
	if c.Scan > 0 {
		e.Scanner = &protocol.Scanner{Master: e.Master, Every: c.Scan, Expire: c.Expire}
	}
	if c.MQTTBrokerURL != "" {
		mirror, err := mqtt.NewMirror(c.MQTTBrokerURL, e.Registry)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("create MQTT mirror error: %w", err)
		}
		e.Mirror = mirror
	}
	return e, nil
}

// AddToLoop implements LoopAdder.
func (e *MasterEnv) AddToLoop(l *fx.Loop) {
	l.Add(e.Master)
	if e.Scanner != nil {
		l.Add(e.Scanner)
	}
	for _, s := range e.Slaves {
		l.Add(s)
	}
	if e.Mirror != nil {
		l.Add(e.Mirror)
	}
}

// Close releases the port.
func (e *MasterEnv) Close() error {
	if e.port != nil {
		return e.port.Close()
	}
	return nil
}

// SlaveEnv is the env of a device.
type SlaveEnv struct {
	Config *Config
	Slave  *protocol.Slave

	port io.Closer
}

// NewSlaveEnv creates SlaveEnv from config.
func (c *Config) NewSlaveEnv() (*SlaveEnv, error) {
	id, err := c.DeviceID()
	if err != nil {
		return nil, err
	}
	port, err := c.OpenPort()
	if err != nil {
		return nil, err
	}
	slave, err := c.newSlave(port, id)
	if err != nil {
		port.Close()
		return nil, err
	}
	glog.Infof("device %s type %s", id, slave.Descriptor().Type)
	return &SlaveEnv{Config: c, Slave: slave, port: port}, nil
}

// AddToLoop implements LoopAdder.
func (e *SlaveEnv) AddToLoop(l *fx.Loop) {
	l.Add(e.Slave)
}

// Close releases the port.
func (e *SlaveEnv) Close() error {
	return e.port.Close()
}

func (c *Config) newSlave(port bus.Port, id ident.ID) (*protocol.Slave, error) {
	desc, err := c.Descriptor(id)
	if err != nil {
		return nil, err
	}
	return protocol.NewSlave(c.NewTransceiver(port), desc)
}

// NewLoop creates a loop with the configured interval.
func (c *Config) NewLoop() *fx.Loop {
	l := fx.NewLoop()
	if c.Interval > 0 {
		l.Interval = c.Interval
	}
	return l
}
