package timelord

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "timelord"

// Metrics are the prometheus collectors updated by the timelord.
type Metrics struct {
	peakDecisions      *prometheus.CounterVec
	admissions         *prometheus.CounterVec
	blueboxRequests    prometheus.Counter
	blueboxEvicted     prometheus.Counter
	blueboxQueueLength prometheus.Gauge
	blocksInfused      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		peakDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peak_decisions_total",
			Help:      "peaks offered to the timelord, by decision",
		}, []string{"outcome"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unfinished_admissions_total",
			Help:      "unfinished blocks offered to the timelord, by result",
		}, []string{"result"}),
		blueboxRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bluebox_requests_total",
			Help:      "compact proof requests queued",
		}),
		blueboxEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bluebox_evicted_total",
			Help:      "compact proof requests evicted as part of a previous batch",
		}),
		blueboxQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bluebox_queue_length",
			Help:      "compact proof requests waiting",
		}),
		blocksInfused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_infused_total",
			Help:      "admitted unfinished blocks that became the peak",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.peakDecisions,
		m.admissions,
		m.blueboxRequests,
		m.blueboxEvicted,
		m.blueboxQueueLength,
		m.blocksInfused,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register timelord metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observePeak(d Decision) {
	m.peakDecisions.WithLabelValues(d.String()).Inc()
}

func (m *Metrics) observeAdmission(r AdmissionResult) {
	m.admissions.WithLabelValues(r.String()).Inc()
}

func (m *Metrics) observeBluebox(evicted, queued int) {
	m.blueboxRequests.Inc()
	m.blueboxEvicted.Add(float64(evicted))
	m.blueboxQueueLength.Set(float64(queued))
}

func (m *Metrics) observeInfused(n int) {
	m.blocksInfused.Add(float64(n))
}
