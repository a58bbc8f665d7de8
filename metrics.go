package tmi

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	received        *prometheus.CounterVec
	sent            prometheus.Counter
	parseErrors     prometheus.Counter
	reconnects      prometheus.Counter
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	pending         prometheus.Gauge
	state           prometheus.Gauge
}

// newMetrics creates the client collectors and registers them on reg.  They
// are left unregistered when reg is nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		received: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tmi_messages_received_total",
			Help: "Number of lines received, by command",
		}, []string{"command"}),
		sent: f.NewCounter(prometheus.CounterOpts{
			Name: "tmi_messages_sent_total",
			Help: "Number of lines sent",
		}),
		parseErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "tmi_parse_errors_total",
			Help: "Number of lines that could not be parsed",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "tmi_reconnects_total",
			Help: "Number of scheduled reconnection attempts",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tmi_commands_total",
			Help: "Number of commands, by name and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tmi_command_duration_seconds",
			Help:    "Time between sending a command and its outcome",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "tmi_pending_commands",
			Help: "Number of commands waiting for an answer",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Name: "tmi_connection_state",
			Help: "Connection state: 0=disconnected 1=connecting 2=open 3=reconnecting 4=closing",
		}),
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCommandTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "rejected"
	}
}
