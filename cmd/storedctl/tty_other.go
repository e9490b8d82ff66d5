//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package main

import "io"

func isTerminal(io.Reader) bool { return false }
