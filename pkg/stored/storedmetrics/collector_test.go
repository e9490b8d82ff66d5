package storedmetrics_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotarena/pkg/stored"
	"github.com/calvinalkan/slotarena/pkg/stored/storedmetrics"
)

func Test_Collector_Reports_Runtime_Stats(t *testing.T) {
	t.Parallel()

	rt := stored.NewRuntime(stored.Options{})
	t.Cleanup(rt.Dispose)

	s := rt.Root().Child()
	stored.New(s, 1)
	stored.New(s, 2)
	stored.NewSlice(rt, 1, 2, 3)
	s.Dispose()

	v := stored.New(rt, 0)

	func() {
		defer func() { _ = recover() }()

		v.UpdateValue(func(*int) { v.Get() })
	}()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(storedmetrics.NewCollector(rt)))

	runtime := rt.ID().String()
	expected := fmt.Sprintf(`
# HELP slotarena_aliasing_violations_total Overlapping accesses detected.
# TYPE slotarena_aliasing_violations_total counter
slotarena_aliasing_violations_total{runtime=%[1]q} 1
# HELP slotarena_capacity_slots Slot indices allocated by the arena, live or free.
# TYPE slotarena_capacity_slots gauge
slotarena_capacity_slots{runtime=%[1]q} 3
# HELP slotarena_disposed_total Slots removed since the runtime was created.
# TYPE slotarena_disposed_total counter
slotarena_disposed_total{runtime=%[1]q} 2
# HELP slotarena_live_slots Slots currently holding a value.
# TYPE slotarena_live_slots gauge
slotarena_live_slots{runtime=%[1]q} 2
# HELP slotarena_scopes Scopes not yet disposed, including the root.
# TYPE slotarena_scopes gauge
slotarena_scopes{runtime=%[1]q} 1
# HELP slotarena_stored_total Values stored since the runtime was created.
# TYPE slotarena_stored_total counter
slotarena_stored_total{runtime=%[1]q} 4
`, runtime)

	err := testutil.GatherAndCompare(reg, strings.NewReader(expected))
	require.NoError(t, err)
}

func Test_Collector_Follows_Runtime_Between_Scrapes(t *testing.T) {
	t.Parallel()

	rt := stored.NewRuntime(stored.Options{})
	t.Cleanup(rt.Dispose)

	c := storedmetrics.NewCollector(rt)

	assert.Equal(t, 6, testutil.CollectAndCount(c))

	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	live := func(n int) string {
		return fmt.Sprintf(`
# HELP slotarena_live_slots Slots currently holding a value.
# TYPE slotarena_live_slots gauge
slotarena_live_slots{runtime=%q} %d
`, rt.ID().String(), n)
	}

	stored.New(rt, "a")
	stored.New(rt, "b")

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(live(2)), "slotarena_live_slots"))

	rt.Dispose()

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(live(0)), "slotarena_live_slots"))

	got, err := testutil.GatherAndCount(reg, "slotarena_stored_total", "slotarena_disposed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}
