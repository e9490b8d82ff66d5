package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a session command with unified help generation.
type Command struct {
	// Flags defines command-specific flags. Nil means no flags.
	Flags *flag.FlagSet

	// Usage is the freeform usage string. The first word is the name.
	Usage string

	// Short is a one-line description for the help listing.
	Short string

	// Exec runs the command after flags are parsed.
	Exec func(s *Session, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the help listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-30s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help for one command.
func (c *Command) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage:", c.Usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.Short)

	if c.Flags != nil && c.Flags.HasFlags() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")

		c.Flags.SetOutput(w)
		c.Flags.PrintDefaults()
	}
}

// Run parses flags and executes the command.
func (c *Command) Run(s *Session, args []string) error {
	if c.Flags == nil {
		return c.Exec(s, args)
	}

	// Flag sets are reused across invocations; start each one from the
	// defaults.
	c.Flags.VisitAll(func(f *flag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	c.Flags.SetOutput(io.Discard)

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(s.out)
			return nil
		}

		return err
	}

	return c.Exec(s, c.Flags.Args())
}
