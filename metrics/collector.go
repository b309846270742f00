package metrics

// Collector wraps metrics and provides helper methods with a pre-filled
// pool label.
type Collector struct {
	pool string
}

// NewCollector creates a new Collector for the given pool name.
func NewCollector(pool string) *Collector {
	return &Collector{pool: pool}
}

// IncSpawns increments the spawn counter.
func (c *Collector) IncSpawns() {
	SpawnsTotal.WithLabelValues(c.pool).Inc()
}

// IncSpawnFailure increments the spawn failure counter for a reason
// ("fork" or "bookkeeping").
func (c *Collector) IncSpawnFailure(reason string) {
	SpawnFailuresTotal.WithLabelValues(c.pool, reason).Inc()
}

// ObserveForkLatency records a process creation latency observation.
func (c *Collector) ObserveForkLatency(seconds float64) {
	ForkLatency.WithLabelValues(c.pool).Observe(seconds)
}

// IncWorkerExit increments the worker exit counter for a cause
// ("exited", "signalled" or "retired").
func (c *Collector) IncWorkerExit(cause string) {
	WorkerExitsTotal.WithLabelValues(c.pool, cause).Inc()
}

// IncRotations increments the rotation counter.
func (c *Collector) IncRotations() {
	RotationsTotal.WithLabelValues(c.pool).Inc()
}

// ObserveReapDuration records how long a rotation spent reaping.
func (c *Collector) ObserveReapDuration(seconds float64) {
	ReapDuration.WithLabelValues(c.pool).Observe(seconds)
}

// SetLiveWorkers sets the live workers gauge.
func (c *Collector) SetLiveWorkers(count int) {
	LiveWorkers.WithLabelValues(c.pool).Set(float64(count))
}

// SetTargetSize sets the target size gauge.
func (c *Collector) SetTargetSize(count int) {
	TargetSize.WithLabelValues(c.pool).Set(float64(count))
}

// SetGenerationAge sets the generation age gauge.
func (c *Collector) SetGenerationAge(seconds float64) {
	GenerationAge.WithLabelValues(c.pool).Set(seconds)
}

// SetRetiredWorkers sets the retired workers gauge.
func (c *Collector) SetRetiredWorkers(count int) {
	RetiredWorkers.WithLabelValues(c.pool).Set(float64(count))
}
