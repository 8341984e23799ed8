package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name used when none is configured.
const DefaultJob = "achillesduck"

// Config holds Pushgateway settings.
type Config struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// Pushgateway collects run metrics in a private registry and pushes them
// on Flush.
type Pushgateway struct {
	url      string
	job      string
	grouping map[string]string
	reg      *prometheus.Registry

	units       *prometheus.CounterVec
	durations   *prometheus.SummaryVec
	lastSuccess prometheus.Gauge
}

// New returns a Pushgateway recorder when cfg names a gateway and Nop
// otherwise. grouping adds Pushgateway grouping labels, e.g. the database.
func New(cfg Config, grouping map[string]string) (Recorder, error) {
	if cfg.PushgatewayURL == "" {
		return Nop{}, nil
	}
	return NewPushgateway(cfg, grouping)
}

// NewPushgateway constructs a Pushgateway recorder.
func NewPushgateway(cfg Config, grouping map[string]string) (*Pushgateway, error) {
	if cfg.PushgatewayURL == "" {
		return nil, fmt.Errorf("metrics: pushgateway URL is required")
	}
	job := cfg.Job
	if job == "" {
		job = DefaultJob
	}

	reg := prometheus.NewRegistry()

	units := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achillesduck_units_total",
			Help: "Units (analyses and merge) executed, partitioned by status.",
		},
		[]string{"status"},
	)
	durations := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "achillesduck_unit_duration_seconds",
			Help:       "Time to convert and execute one unit, partitioned by status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"status"},
	)
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "achillesduck_last_run_success",
		Help: "1 if the last run completed, 0 if it aborted.",
	})

	for _, c := range []prometheus.Collector{units, durations, lastSuccess} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}

	return &Pushgateway{
		url:         cfg.PushgatewayURL,
		job:         job,
		grouping:    grouping,
		reg:         reg,
		units:       units,
		durations:   durations,
		lastSuccess: lastSuccess,
	}, nil
}

// ObserveUnit counts a unit and records its duration.
func (p *Pushgateway) ObserveUnit(status string, d time.Duration) {
	p.units.WithLabelValues(status).Inc()
	p.durations.WithLabelValues(status).Observe(d.Seconds())
}

// RunFinished sets the last-run gauge.
func (p *Pushgateway) RunFinished(success bool) {
	if success {
		p.lastSuccess.Set(1)
		return
	}
	p.lastSuccess.Set(0)
}

// Flush pushes the registry to the gateway, replacing the previous push
// for the same job and grouping.
func (p *Pushgateway) Flush(ctx context.Context) error {
	pusher := push.New(p.url, p.job).Gatherer(p.reg)
	for name, value := range p.grouping {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", p.url, err)
	}
	return nil
}
