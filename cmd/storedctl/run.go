package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

// Run is the main entry point. args[0] is the program name. Returns the
// exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out, flags.set)
			return 0
		}

		fmt.Fprintln(errOut, "error:", err)
		printUsage(errOut, flags.set)

		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(errOut, "error: cannot get working directory:", err)
		return 1
	}

	cfg, sources, err := LoadConfig(workDir, flags.configPath, flags.overrides, env)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if flags.printConfig {
		return printConfig(out, errOut, cfg, sources)
	}

	logger, err := newLogger(errOut, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	defer func() { _ = logger.Sync() }()

	rt := stored.NewRuntime(stored.Options{Logger: logger, InitialCapacity: cfg.InitialCapacity})
	defer rt.Dispose()

	session := NewSession(rt, logger, out)

	switch {
	case flags.script != "":
		f, err := os.Open(flags.script)
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}

		defer f.Close()

		return runScript(session, f, errOut)
	case isTerminal(in):
		repl := &REPL{session: session, cfg: cfg, env: env, out: out}

		err := repl.Run()
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}

		return 0
	default:
		return runScript(session, in, errOut)
	}
}

type globalFlags struct {
	set         *flag.FlagSet
	configPath  string
	script      string
	printConfig bool
	overrides   Config
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	fs := flag.NewFlagSet("storedctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&flags.configPath, "config", "c", "", "config file (default ./"+ConfigFileName+")")
	fs.IntVar(&flags.overrides.InitialCapacity, "capacity", 0, "initial slot capacity")
	fs.StringVar(&flags.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVarP(&flags.script, "script", "s", "", "read commands from file")
	fs.BoolVar(&flags.printConfig, "print-config", false, "print the effective configuration and exit")

	flags.set = fs

	err := fs.Parse(args)
	if err != nil {
		return flags, err
	}

	if fs.NArg() > 0 {
		return flags, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if fs.Changed("capacity") && flags.overrides.InitialCapacity < 0 {
		return flags, errCapacityNegative
	}

	return flags, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: storedctl [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")

	if fs != nil {
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}

func printConfig(out, errOut io.Writer, cfg Config, sources ConfigSources) int {
	formatted, err := FormatConfig(cfg)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	fmt.Fprintln(out, formatted)

	if sources.Global != "" {
		fmt.Fprintln(errOut, "# global:", sources.Global)
	}

	if sources.Project != "" {
		fmt.Fprintln(errOut, "# project:", sources.Project)
	}

	return 0
}

// newLogger builds a console logger writing to w.
func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)

	return zap.New(core), nil
}

// runScript executes commands line by line and stops at the first error.
func runScript(s *Session, r io.Reader, errOut io.Writer) int {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		quit, err := s.Exec(scanner.Text())
		if err != nil {
			fmt.Fprintf(errOut, "error: line %d: %v\n", lineNo, err)
			return 1
		}

		if quit {
			return 0
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(errOut, "error: reading commands:", err)
		return 1
	}

	return 0
}
