package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSpawnsTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(SpawnsTotal.WithLabelValues("test-pool"))
	SpawnsTotal.WithLabelValues("test-pool").Inc()
	after := testutil.ToFloat64(SpawnsTotal.WithLabelValues("test-pool"))

	assert.Equal(t, before+1, after)
}

func TestSpawnFailuresTotal_IncrementByReason(t *testing.T) {
	before := testutil.ToFloat64(SpawnFailuresTotal.WithLabelValues("test-pool-2", "fork"))
	SpawnFailuresTotal.WithLabelValues("test-pool-2", "fork").Inc()
	after := testutil.ToFloat64(SpawnFailuresTotal.WithLabelValues("test-pool-2", "fork"))

	assert.Equal(t, before+1, after)
}

func TestLiveWorkers_SetValue(t *testing.T) {
	LiveWorkers.WithLabelValues("test-pool-3").Set(5)
	value := testutil.ToFloat64(LiveWorkers.WithLabelValues("test-pool-3"))

	assert.Equal(t, float64(5), value)
}

func TestTargetSize_SetValue(t *testing.T) {
	TargetSize.WithLabelValues("test-pool-4").Set(8)
	value := testutil.ToFloat64(TargetSize.WithLabelValues("test-pool-4"))

	assert.Equal(t, float64(8), value)
}

func TestForkLatency_Observe(t *testing.T) {
	ForkLatency.WithLabelValues("test-pool-5").Observe(0.002)

	count := testutil.CollectAndCount(ForkLatency)
	assert.Greater(t, count, 0)
}

func TestMetrics_RegisteredWithDefaultRegistry(t *testing.T) {
	// promauto registers at package init; gathering must include our
	// counter once it has at least one labeled child.
	SpawnsTotal.WithLabelValues("test-pool-6").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	assert.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "readerpool_spawns_total" {
			found = true
		}
	}
	assert.True(t, found)
}
