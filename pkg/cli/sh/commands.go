package sh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rs4b/pkg/registry"
)

// waitFor is the time the mirrored command collects retained entries.
const waitFor = 500 * time.Millisecond

var (
	// DiscoverCmd broadcasts WHO.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"who"},
		Help:    "find devices on the bus",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			entries, err := s.Discover(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			if err = s.PrintEntries(entries); err != nil {
				c.Err(err)
			}
		},
	}

	// IdentifyCmd asks a device for its descriptor.
	IdentifyCmd = ishell.Cmd{
		Name:    "identify",
		Aliases: []string{"id"},
		Help:    "UUID",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("UUID required"))
				return
			}
			s := ShellFrom(c)
			entry, err := s.Identify(context.Background(), c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err = s.PrintEntries([]registry.Entry{entry}); err != nil {
				c.Err(err)
			}
		},
	}

	// ListCmd prints the registry.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"ls", "l"},
		Help:    "list known devices",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.PrintEntries(s.Env.Registry.List()); err != nil {
				c.Err(err)
			}
		},
	}

	// SendCmd forwards a raw line, same as typing an unknown command.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "LINE",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("LINE required"))
				return
			}
			ShellFrom(c).sendLine(c, strings.Join(c.Args, " "))
		},
	}

	// PruneCmd drops devices not seen recently.
	PruneCmd = ishell.Cmd{
		Name: "prune",
		Help: "DURATION",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("DURATION required"))
				return
			}
			d, err := time.ParseDuration(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid DURATION: %w", err))
				return
			}
			for _, id := range ShellFrom(c).Env.Registry.Prune(time.Now().Add(-d)) {
				c.Println("removed", id)
			}
		},
	}

	// MirroredCmd lists the entries retained on the MQTT broker.
	MirroredCmd = ishell.Cmd{
		Name: "mirrored",
		Help: "list devices mirrored on the MQTT broker",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Env.Mirror == nil {
				c.Err(fmt.Errorf("MQTT mirror not configured"))
				return
			}
			entries, err := s.Env.Mirror.Browse(context.Background(), waitFor)
			if err != nil {
				c.Err(err)
				return
			}
			if err = s.PrintEntries(entries); err != nil {
				c.Err(err)
			}
		},
	}
)
