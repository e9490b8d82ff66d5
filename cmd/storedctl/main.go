// storedctl is an interactive shell over a stored runtime.
//
// Usage:
//
//	storedctl [flags]                  Start a session (REPL on a terminal)
//	storedctl -s <file>                Run commands from a file
//	storedctl --print-config           Print the effective configuration
//
// Flags:
//
//	-c, --config <file>   Use this config file instead of ./.storedctl.json
//	    --capacity <n>    Initial slot capacity
//	    --log-level <l>   debug, info, warn or error
//	-s, --script <file>   Read commands from file instead of stdin
//	    --print-config    Print the effective configuration and exit
//
// Type 'help' in a session for the command list.
package main

import (
	"os"
	"strings"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}
