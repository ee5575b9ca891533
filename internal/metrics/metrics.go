// Package metrics exposes plate activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/ashureev/plate-labs/internal/plate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plate"

// Recorder implements bot.Observer on a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	commands   *prometheus.CounterVec
	placements *prometheus.CounterVec
	objects    prometheus.Counter
	researches prometheus.Gauge
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Handled chat inputs by command and outcome.",
		}, []string{"command", "outcome"}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placements_total",
			Help:      "Placement batches by result status.",
		}, []string{"status"}),
		objects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_placed_total",
			Help:      "Objects written into plate wells.",
		}),
		researches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_researches",
			Help:      "Currently open researches.",
		}),
	}
	r.registry.MustRegister(
		r.commands,
		r.placements,
		r.objects,
		r.researches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveCommand counts one handled input.
func (r *Recorder) ObserveCommand(command, outcome string) {
	r.commands.WithLabelValues(command, outcome).Inc()
}

// ObservePlacement counts one placement batch and the wells it filled.
func (r *Recorder) ObservePlacement(status plate.Status, placed int) {
	r.placements.WithLabelValues(status.String()).Inc()
	if placed > 0 {
		r.objects.Add(float64(placed))
	}
}

// ObserveResearches sets the open research gauge.
func (r *Recorder) ObserveResearches(open int) {
	r.researches.Set(float64(open))
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
