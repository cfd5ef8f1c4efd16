// Package metrics defines and registers all custom Prometheus metrics for the
// campaign results service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation; Handler exposes them.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/service"
)

const namespace = "campaign"

// ── Load cycle metrics ────────────────────────────────────────────────────────

// LoadsTotal counts finished load cycles.
// Label:
//   - outcome: "ready", "failed" or "superseded"
var LoadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loads_total",
		Help:      "Total number of campaign load cycles, by outcome.",
	},
	[]string{"outcome"},
)

// LoadDuration measures a load cycle from connect to a terminal state.
// Label:
//   - phase: the campaign phase read, or "unknown" when the cycle failed before reading it
var LoadDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "load_duration_seconds",
		Help:      "Duration of campaign load cycles.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"phase"},
)

// ── Ledger metrics ────────────────────────────────────────────────────────────

// LedgerCallsTotal counts ledger reads.
// Labels:
//   - op: e.g. "read_phase", "participant_record"
//   - result: "ok", "unavailable" or "error"
var LedgerCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_calls_total",
		Help:      "Total number of ledger reads, by operation and result.",
	},
	[]string{"op", "result"},
)

// RecordsUnavailableTotal counts roster entries rendered without a record.
var RecordsUnavailableTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_unavailable_total",
		Help:      "Total number of approved participants whose record could not be fetched.",
	},
)

// ── Refresh queue metrics ─────────────────────────────────────────────────────

// RefreshQueueDepth tracks pending refresh requests per dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var RefreshQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "refresh_queue_depth",
		Help:      "Current number of refresh requests pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// RefreshRejectedTotal counts refresh requests turned away because the
// worker backlog was full.
var RefreshRejectedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_rejected_total",
		Help:      "Total number of refresh requests rejected by a full queue.",
	},
)

// PromRecorder feeds load-cycle measurements into the metrics above.
type PromRecorder struct{}

var _ service.Recorder = PromRecorder{}

func (PromRecorder) LedgerCall(op string, err error) {
	LedgerCallsTotal.WithLabelValues(op, callResult(err)).Inc()
}

func (PromRecorder) RecordUnavailable() {
	RecordsUnavailableTotal.Inc()
}

func (PromRecorder) CycleFinished(outcome domain.LoadOutcome, phase domain.CampaignPhase, elapsed time.Duration) {
	LoadsTotal.WithLabelValues(string(outcome)).Inc()
	label := string(phase)
	if label == "" {
		label = "unknown"
	}
	LoadDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// QueueDepth matches queue.DepthFunc.
func QueueDepth(workerID, depth int) {
	RefreshQueueDepth.WithLabelValues(strconv.Itoa(workerID)).Set(float64(depth))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRecordUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
