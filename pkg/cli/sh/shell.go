// Package sh provides the interactive console of the bus master.
package sh

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/go-json-experiment/json"
	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/env"
	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/protocol"
	"github.com/robotalks/rs4b/pkg/registry"
)

// Shell provides the ishell backed master console.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Out receives command output and the frame mirror.
	Out io.Writer

	Shell *ishell.Shell
	Env   *env.MasterEnv
	Loop  *fx.Loop
}

const (
	shellKey = "$shell"
	prompt   = "rs4b > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	monitor    = true

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&IdentifyCmd,
		&ListCmd,
		&SendCmd,
		&PruneCmd,
		&MirroredCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&monitor, "monitor", monitor, "Print every frame sent and received.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell over the master env. The loop is driven by Run.
func New(e *env.MasterEnv, loop *fx.Loop) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Out:         os.Stdout,
		Env:         e,
		Loop:        loop,
	}
	if monitor {
		e.Master.Monitor = protocol.Monitors{
			protocol.LogMonitor{},
			&protocol.WriterMonitor{W: s.Out},
		}
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Do submits a request to the loop and waits for its result.
func (s *Shell) Do(ctx context.Context, req *protocol.Request) protocol.Result {
	s.Env.Master.Submit(req)
	s.Loop.TriggerNext()
	select {
	case res := <-req.ResultChan():
		return res
	case <-ctx.Done():
		return protocol.Result{Err: ctx.Err()}
	}
}

// Discover broadcasts WHO and returns the entries of the devices that
// answered.
func (s *Shell) Discover(ctx context.Context) ([]registry.Entry, error) {
	res := s.Do(ctx, protocol.NewDiscoverRequest())
	if res.Err != nil {
		return nil, res.Err
	}
	entries := make([]registry.Entry, 0, len(res.Devices))
	for _, id := range res.Devices {
		if e, ok := s.Env.Registry.Get(id); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Identify asks a device for its descriptor.
func (s *Shell) Identify(ctx context.Context, id string) (registry.Entry, error) {
	devID, err := ident.Parse(id)
	if err != nil {
		return registry.Entry{}, err
	}
	res := s.Do(ctx, protocol.NewIdentifyRequest(devID))
	return res.Entry, res.Err
}

// Send forwards a raw line to the bus.
func (s *Shell) Send(ctx context.Context, text string) error {
	return s.Do(ctx, protocol.NewRawRequest(text)).Err
}

// PrintEntries writes entries as text lines or a JSON array.
func (s *Shell) PrintEntries(entries []registry.Entry) error {
	if s.OutputJSON {
		if entries == nil {
			entries = []registry.Entry{}
		}
		out, err := json.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.Out, string(out))
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(s.Out, "No devices found")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(s.Out, FormatEntry(e)); err != nil {
			return err
		}
	}
	return nil
}

// FormatEntry prints an entry into friendly string for display.
func FormatEntry(e registry.Entry) string {
	var sb strings.Builder
	sb.WriteString(string(e.UUID))
	if d := e.Descriptor; d != nil {
		fmt.Fprintf(&sb, " %s methods=%s", d.Type, strings.Join(d.Methods, ","))
		props := make([]string, len(d.Props))
		for n, p := range d.Props {
			props[n] = p.Name + ":" + p.Type
		}
		fmt.Fprintf(&sb, " props=%s", strings.Join(props, ","))
	} else {
		sb.WriteString(" (unidentified)")
	}
	fmt.Fprintf(&sb, " last-seen=%s", e.LastSeen.Format("15:04:05.000"))
	return sb.String()
}

func (s *Shell) setup() {
	s.Shell = ishell.New()
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.Shell.NotFound(func(c *ishell.Context) {
		ShellFrom(c).sendLine(c, strings.Join(c.Args, " "))
	})
}

func (s *Shell) sendLine(c *ishell.Context, text string) {
	if err := s.Send(context.Background(), text); err != nil {
		c.Err(err)
	}
}

// Run drives the loop and runs the shell until it exits.
func (s *Shell) Run(args ...string) error {
	runner := fx.NewRunner()
	if !s.Interactive {
		runner.HandleSignals()
	}
	runner.Go(fx.NamedRun("loop", s.Loop))
	defer func() {
		runner.Stop()
		if err := runner.Wait(); err != nil {
			glog.Errorf("loop: %v", err)
		}
	}()

	s.setup()
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}
