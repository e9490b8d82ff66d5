package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/slotarena/pkg/stored"
	"github.com/calvinalkan/slotarena/pkg/stored/storedmetrics"
)

// Session holds one runtime and the names the user gave its handles.
//
// Values are stored into the innermost pushed scope; "scope pop" disposes
// that scope and everything stored in it.
type Session struct {
	rt       *stored.Runtime
	logger   *zap.Logger
	out      io.Writer
	scopes   []*stored.Scope
	names    map[string]entry
	order    []string
	registry *prometheus.Registry
	commands []*Command
}

// NewSession creates a session over rt. Output goes to out.
func NewSession(rt *stored.Runtime, logger *zap.Logger, out io.Writer) *Session {
	registry := prometheus.NewRegistry()
	registry.MustRegister(storedmetrics.NewCollector(rt))

	s := &Session{
		rt:       rt,
		logger:   logger,
		out:      out,
		scopes:   []*stored.Scope{rt.Root()},
		names:    make(map[string]entry),
		registry: registry,
	}
	s.commands = s.buildCommands()

	return s
}

// Exec runs one command line. It reports quit == true for "exit".
func (s *Session) Exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}

	name := strings.ToLower(fields[0])

	switch name {
	case "exit", "quit", "q":
		return true, nil
	case "help", "?":
		s.printHelp(fields[1:])
		return false, nil
	}

	cmd := s.command(name)
	if cmd == nil {
		return false, fmt.Errorf("%w: %s (type 'help' for commands)", errUnknownCommand, name)
	}

	s.logger.Debug("exec", zap.String("command", name), zap.Strings("args", fields[1:]))

	return false, cmd.Run(s, fields[1:])
}

// Completions returns the command names and handle names starting with
// prefix, for tab completion.
func (s *Session) Completions(prefix string) []string {
	var out []string

	for _, c := range s.commands {
		if strings.HasPrefix(c.Name(), prefix) {
			out = append(out, c.Name())
		}
	}

	for _, n := range s.order {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}

	return out
}

func (s *Session) command(name string) *Command {
	for _, c := range s.commands {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

func (s *Session) printHelp(args []string) {
	if len(args) > 0 {
		if c := s.command(args[0]); c != nil {
			c.PrintHelp(s.out)
			return
		}
	}

	fmt.Fprintln(s.out, "Commands:")

	for _, c := range s.commands {
		fmt.Fprintln(s.out, c.HelpLine())
	}

	fmt.Fprintf(s.out, "  %-30s %s\n", "help [command]", "Show help")
	fmt.Fprintf(s.out, "  %-30s %s\n", "exit", "Leave the session")
}

func (s *Session) current() *stored.Scope {
	return s.scopes[len(s.scopes)-1]
}

func (s *Session) bind(name string, e entry) error {
	if _, taken := s.names[name]; taken {
		return fmt.Errorf("%w: %s", errNameTaken, name)
	}

	s.names[name] = e
	s.order = append(s.order, name)

	fmt.Fprintf(s.out, "%s = %s %s\n", name, e.kind(), e.key())

	return nil
}

func (s *Session) lookup(name string) (entry, error) {
	e, ok := s.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownName, name)
	}

	return e, nil
}

// store runs f, converting the panic of a strict constructor into an error.
func (s *Session) store(name string, f func(o stored.Owner) entry) (err error) {
	if _, taken := s.names[name]; taken {
		return fmt.Errorf("%w: %s", errNameTaken, name)
	}

	defer func() {
		if r := recover(); r != nil {
			accessErr, ok := r.(*stored.AccessError)
			if !ok {
				panic(r)
			}

			err = accessErr
		}
	}()

	return s.bind(name, f(s.current()))
}

func (s *Session) buildCommands() []*Command {
	incFlags := flag.NewFlagSet("inc", flag.ContinueOnError)
	incFlags.IntP("by", "b", 1, "amount to add")

	lsFlags := flag.NewFlagSet("ls", flag.ContinueOnError)
	lsFlags.Bool("live", false, "only list handles whose slot is live")

	return []*Command{
		{
			Usage: "new <name> <int>",
			Short: "Store an int in the current scope",
			Exec:  (*Session).cmdNew,
		},
		{
			Usage: "view <name> <text...>",
			Short: "Store text behind a fmt.Stringer view",
			Exec:  (*Session).cmdView,
		},
		{
			Usage: "slice <name> <ints...>",
			Short: "Store a fixed-length run of ints",
			Exec:  (*Session).cmdSlice,
		},
		{
			Usage: "const <name> <text...>",
			Short: "Store read-only text",
			Exec:  (*Session).cmdConst,
		},
		{
			Usage: "get <name>",
			Short: "Print a handle's value",
			Exec:  (*Session).cmdGet,
		},
		{
			Usage: "set <name> <value...>",
			Short: "Replace a handle's value",
			Exec:  (*Session).cmdSet,
		},
		{
			Usage: "inc <name> [--by n]",
			Short: "Add to every number behind a handle",
			Flags: incFlags,
			Exec:  (*Session).cmdInc,
		},
		{
			Usage: "dispose <name>",
			Short: "Dispose a handle's slot now",
			Exec:  (*Session).cmdDispose,
		},
		{
			Usage: "downcast <name> <from> <type>",
			Short: "Re-type a view (text) or slice ([N]int) as a new handle",
			Exec:  (*Session).cmdDowncast,
		},
		{
			Usage: "scope <push|pop|list>",
			Short: "Manage the scope stack",
			Exec:  (*Session).cmdScope,
		},
		{
			Usage: "ls [--live]",
			Short: "List named handles",
			Flags: lsFlags,
			Exec:  (*Session).cmdLs,
		},
		{
			Usage: "stats",
			Short: "Show runtime counters",
			Exec:  (*Session).cmdStats,
		},
		{
			Usage: "metrics",
			Short: "Print runtime metrics in Prometheus text format",
			Exec:  (*Session).cmdMetrics,
		},
		{
			Usage: "dump <file>",
			Short: "Write handles and counters to a JSON file",
			Exec:  (*Session).cmdDump,
		},
	}
}

func (s *Session) cmdNew(args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	return s.store(args[0], func(o stored.Owner) entry {
		return valueEntry{stored.New(o, n)}
	})
}

func (s *Session) cmdView(args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	t := text(strings.Join(args[1:], " "))

	return s.store(args[0], func(o stored.Owner) entry {
		return viewEntry{stored.NewView[fmt.Stringer](o, t)}
	})
}

func (s *Session) cmdSlice(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	elems, err := parseInts(args[1:])
	if err != nil {
		return err
	}

	return s.store(args[0], func(o stored.Owner) entry {
		return sliceEntry{stored.NewSlice(o, elems...)}
	})
}

func (s *Session) cmdConst(args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	v := strings.Join(args[1:], " ")

	return s.store(args[0], func(o stored.Owner) entry {
		return constEntry{stored.NewConst(o, v)}
	})
}

func (s *Session) cmdGet(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	e, err := s.lookup(args[0])
	if err != nil {
		return err
	}

	v, err := e.get()
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, v)

	return nil
}

func (s *Session) cmdSet(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	e, err := s.lookup(args[0])
	if err != nil {
		return err
	}

	return e.set(args[1:])
}

func (s *Session) cmdInc(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	e, err := s.lookup(args[0])
	if err != nil {
		return err
	}

	by, err := s.command("inc").Flags.GetInt("by")
	if err != nil {
		return err
	}

	return e.inc(by)
}

func (s *Session) cmdDispose(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	e, err := s.lookup(args[0])
	if err != nil {
		return err
	}

	e.dispose()

	return nil
}

func (s *Session) cmdDowncast(args []string) error {
	if len(args) != 3 {
		return errUsage
	}

	if _, taken := s.names[args[0]]; taken {
		return fmt.Errorf("%w: %s", errNameTaken, args[0])
	}

	from, err := s.lookup(args[1])
	if err != nil {
		return err
	}

	e, err := downcastEntry(from, args[2])
	if err != nil {
		return err
	}

	return s.bind(args[0], e)
}

func (s *Session) cmdScope(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	switch args[0] {
	case "push":
		s.scopes = append(s.scopes, s.current().Child())
		fmt.Fprintf(s.out, "scope depth %d\n", len(s.scopes)-1)
	case "pop":
		if len(s.scopes) == 1 {
			return errRootScope
		}

		top := s.current()
		n := top.Len()
		top.Dispose()
		s.scopes = s.scopes[:len(s.scopes)-1]

		fmt.Fprintf(s.out, "scope depth %d (%d values disposed)\n", len(s.scopes)-1, n)
	case "list":
		for depth, sc := range s.scopes {
			fmt.Fprintf(s.out, "%d: %d values\n", depth, sc.Len())
		}
	default:
		return fmt.Errorf("%w: scope %s", errUnknownCommand, args[0])
	}

	return nil
}

func (s *Session) cmdLs(args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	liveOnly, err := s.command("ls").Flags.GetBool("live")
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tKEY\tTYPE\tSTATE")

	for _, info := range s.handleInfos() {
		if liveOnly && !info.Live {
			continue
		}

		state := "disposed"
		if info.Live {
			state = "live"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.Name, info.Kind, info.Key, info.Type, state)
	}

	return tw.Flush()
}

func (s *Session) cmdStats(args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	st := s.rt.Stats()

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "runtime\t%s\n", s.rt.ID())
	fmt.Fprintf(tw, "live\t%d\n", st.Live)
	fmt.Fprintf(tw, "capacity\t%d\n", st.Capacity)
	fmt.Fprintf(tw, "free\t%d\n", st.Free)
	fmt.Fprintf(tw, "scopes\t%d\n", st.Scopes)
	fmt.Fprintf(tw, "stored\t%d\n", st.Stored)
	fmt.Fprintf(tw, "disposed\t%d\n", st.Disposed)
	fmt.Fprintf(tw, "aliasing violations\t%d\n", st.AliasingViolations)

	return tw.Flush()
}

func (s *Session) cmdMetrics(args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}

	enc := expfmt.NewEncoder(s.out, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}

	return nil
}

// handleInfo is one named handle as reported by ls and dump.
type handleInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Key  string `json:"key"`
	Type string `json:"type"`
	Live bool   `json:"live"`
}

func (s *Session) handleInfos() []handleInfo {
	infos := make([]handleInfo, 0, len(s.order))

	for _, name := range s.order {
		e := s.names[name]
		tag := s.rt.TypeOf(e.key())

		infos = append(infos, handleInfo{
			Name: name,
			Kind: e.kind(),
			Key:  e.key().String(),
			Type: tag.String(),
			Live: tag != 0,
		})
	}

	return infos
}

type dumpStats struct {
	Live               int    `json:"live"`
	Capacity           int    `json:"capacity"`
	Scopes             int    `json:"scopes"`
	Stored             uint64 `json:"stored"`
	Disposed           uint64 `json:"disposed"`
	AliasingViolations uint64 `json:"aliasing_violations"` //nolint:tagliatelle // snake_case like the config file
}

type dumpFile struct {
	Runtime string       `json:"runtime"`
	Stats   dumpStats    `json:"stats"`
	Handles []handleInfo `json:"handles"`
}

func (s *Session) cmdDump(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	data, err := json.MarshalIndent(dumpFile{
		Runtime: s.rt.ID().String(),
		Stats:   newDumpStats(s.rt.Stats()),
		Handles: s.handleInfos(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}

	data = append(data, '\n')

	if err := atomic.WriteFile(args[0], bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	fmt.Fprintf(s.out, "wrote %s\n", args[0])

	return nil
}

func newDumpStats(st stored.Stats) dumpStats {
	return dumpStats{
		Live:               st.Live,
		Capacity:           st.Capacity,
		Scopes:             st.Scopes,
		Stored:             st.Stored,
		Disposed:           st.Disposed,
		AliasingViolations: st.AliasingViolations,
	}
}
