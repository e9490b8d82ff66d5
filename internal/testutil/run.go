package testutil

import (
	"fmt"
	"strings"
	"testing"
)

// RunConfig configures a behavior test run.
type RunConfig struct {
	// MaxOps is the maximum number of operations to execute.
	MaxOps int

	// CompareStateEveryN runs full state comparison every N operations.
	// Set to 0 to disable periodic checks (only check at end).
	CompareStateEveryN int
}

// DefaultRunConfig returns a balanced configuration for behavior tests.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxOps:             200,
		CompareStateEveryN: 10,
	}
}

// RunBehavior executes a deterministic stream of operations and compares
// the behavior between the model and the real runtime.
func RunBehavior(tb testing.TB, cfg RunConfig, h *Harness, gen *OpGenerator) {
	tb.Helper()

	if cfg.MaxOps <= 0 {
		tb.Fatalf("RunBehavior requires MaxOps > 0")
	}

	history := make([]string, 0, cfg.MaxOps)

	for opIndex := 1; opIndex <= cfg.MaxOps && gen.HasMore(); opIndex++ {
		op := gen.NextOp()
		history = append(history, op.String())

		modelRes, realRes := h.Apply(op)

		err := compareResults(op, modelRes, realRes)
		if err != nil {
			tb.Fatalf("%v\n%s", err, FormatOps(history))
		}

		if cfg.CompareStateEveryN > 0 && opIndex%cfg.CompareStateEveryN == 0 {
			err := CompareState(h)
			if err != nil {
				tb.Fatalf("%v\n%s", err, FormatOps(history))
			}
		}
	}

	err := CompareState(h)
	if err != nil {
		tb.Fatalf("%v\n%s", err, FormatOps(history))
	}
}

// RunBehaviorWithSeed runs behavior tests with a specific byte seed and the
// default generator config.
func RunBehaviorWithSeed(tb testing.TB, seed []byte, cfg RunConfig) {
	tb.Helper()

	h := NewHarness(tb)
	genCfg := DefaultOpGenConfig()
	gen := NewOpGenerator(seed, h.Model, &genCfg)

	RunBehavior(tb, cfg, h, gen)
}

// CompareState checks counters and every handle's payload.
func CompareState(h *Harness) error {
	stats := h.Runtime.Stats()

	if got, want := stats.Live, h.Model.Live(); got != want {
		return fmt.Errorf("live slots: real=%d model=%d", got, want)
	}

	if got, want := stats.Scopes, h.Model.LiveScopes(); got != want {
		return fmt.Errorf("live scopes: real=%d model=%d", got, want)
	}

	if got, want := len(h.handles), len(h.Model.Handles); got != want {
		return fmt.Errorf("handle table: real=%d model=%d", got, want)
	}

	if got, want := len(h.scopes), len(h.Model.Scopes); got != want {
		return fmt.Errorf("scope table: real=%d model=%d", got, want)
	}

	for i := range h.handles {
		op := OpGet{Handle: i}

		modelRes, realRes := h.Apply(op)

		err := compareResults(op, modelRes, realRes)
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}
	}

	for i, s := range h.scopes {
		if got, want := s.IsDisposed(), h.Model.ScopeDisposed(i); got != want {
			return fmt.Errorf("scope %d disposed: real=%v model=%v", i, got, want)
		}
	}

	return nil
}

// FormatOps renders an op history for failure messages.
func FormatOps(history []string) string {
	var b strings.Builder

	b.WriteString("ops:\n")

	for i, op := range history {
		fmt.Fprintf(&b, "  %3d. %s\n", i+1, op)
	}

	return b.String()
}
