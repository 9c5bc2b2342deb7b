// Package output implements the per-application delay log and duplicate
// counter of spec §3 (SimulationOutput) and §6 (the output artifact's
// extracted fields), with a live Prometheus mirror for long-running
// batches.
//
// Grounded on original_source/simulation/output.py's Output class; the
// Prometheus wiring follows client2/ (this tree's only consumer of
// prometheus/client_golang before this package).
package output

import "github.com/prometheus/client_golang/prometheus"

// Entry is one (time, delay) sample, both in milliseconds.
type Entry struct {
	TimeMS  int64 `cbor:"t"`
	DelayMS int64 `cbor:"d"`
}

// Output accumulates, per application name, every end-to-end delivery
// delay and a duplicate-delivery counter. E2EOnline mirrors E2E for
// deliveries that arrived while the recipient was online.
type Output struct {
	E2E         map[string][]Entry
	E2EOnline   map[string][]Entry
	AlreadySeen map[string]int

	delayHist      *prometheus.HistogramVec
	alreadySeenCtr *prometheus.CounterVec
}

// New returns an empty Output, registering its Prometheus collectors
// against reg. Pass prometheus.NewRegistry() in tests to avoid colliding
// with the global default registry across parallel test runs.
func New(reg prometheus.Registerer) *Output {
	o := &Output{
		E2E:         make(map[string][]Entry),
		E2EOnline:   make(map[string][]Entry),
		AlreadySeen: make(map[string]int),
		delayHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loopix_e2e_delay_ms",
			Help:    "End-to-end application payload delay in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 16),
		}, []string{"app"}),
		alreadySeenCtr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loopix_duplicate_deliveries_total",
			Help: "Count of duplicate payload deliveries observed per application.",
		}, []string{"app"}),
	}
	if reg != nil {
		reg.MustRegister(o.delayHist, o.alreadySeenCtr)
	}
	return o
}

// LogE2EDelay records a first-occurrence delivery at simulated time nowMS
// with end-to-end delay delayMS, and additionally into the online-only
// sublist when online is true.
func (o *Output) LogE2EDelay(app string, nowMS, delayMS int64, online bool) {
	e := Entry{TimeMS: nowMS, DelayMS: delayMS}
	o.E2E[app] = append(o.E2E[app], e)
	if online {
		o.E2EOnline[app] = append(o.E2EOnline[app], e)
	}
	o.delayHist.WithLabelValues(app).Observe(float64(delayMS))
}

// LogAlreadySeen increments app's duplicate-delivery counter.
func (o *Output) LogAlreadySeen(app string) {
	o.AlreadySeen[app]++
	o.alreadySeenCtr.WithLabelValues(app).Inc()
}

// TotalAlreadySeen sums the duplicate counters across every application,
// matching spec §6's already_seen output field.
func (o *Output) TotalAlreadySeen() int {
	total := 0
	for _, n := range o.AlreadySeen {
		total += n
	}
	return total
}
