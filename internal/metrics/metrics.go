package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the pipeline metrics of one service process. All recording
// methods are safe to call on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Validations  *prometheus.CounterVec
	RowsChecked  prometheus.Counter
	RowsRejected prometheus.Counter

	Predictions      *prometheus.CounterVec
	InferenceLatency *prometheus.HistogramVec
	InferenceErrors  *prometheus.CounterVec

	ModelLoaded  prometheus.Gauge
	ModelReloads *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "superkart_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "superkart_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "superkart_validations_total",
		Help: "Validation calls by mode and outcome kind.",
	}, []string{"mode", "kind"})
	rowsChecked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "superkart_validation_rows_total",
		Help: "Batch rows inspected by the validator.",
	})
	rowsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "superkart_validation_rows_rejected_total",
		Help: "Batch rows with at least one violation.",
	})

	predictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "superkart_predictions_total",
		Help: "Predicted records by mode.",
	}, []string{"mode"})
	inferenceLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "superkart_inference_latency_seconds",
		Help:    "Latency of inference calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	inferenceErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "superkart_inference_errors_total",
		Help: "Failed inference calls by error kind.",
	}, []string{"kind"})

	modelLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "superkart_model_loaded",
		Help: "1 when a model is loaded and serving.",
	})
	modelReloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "superkart_model_reloads_total",
		Help: "Model reload attempts by result.",
	}, []string{"result"})

	r.MustRegister(httpRequests, httpDuration, validations, rowsChecked, rowsRejected,
		predictions, inferenceLatency, inferenceErrors, modelLoaded, modelReloads)

	return &Registry{
		reg:              r,
		HTTPRequests:     httpRequests,
		HTTPDuration:     httpDuration,
		Validations:      validations,
		RowsChecked:      rowsChecked,
		RowsRejected:     rowsRejected,
		Predictions:      predictions,
		InferenceLatency: inferenceLatency,
		InferenceErrors:  inferenceErrors,
		ModelLoaded:      modelLoaded,
		ModelReloads:     modelReloads,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

const kindOK = "ok"

type kinded interface {
	Kind() string
}

// KindOf returns the Kind of err, "ok" for nil and "unknown" otherwise.
func KindOf(err error) string {
	if err == nil {
		return kindOK
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "unknown"
}

func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Registry) ObserveValidation(mode string, err error) {
	if r == nil {
		return
	}
	r.Validations.WithLabelValues(mode, KindOf(err)).Inc()
}

func (r *Registry) ObserveRows(checked, rejected int) {
	if r == nil {
		return
	}
	r.RowsChecked.Add(float64(checked))
	r.RowsRejected.Add(float64(rejected))
}

func (r *Registry) ObserveInference(mode string, records int, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.InferenceLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err != nil {
		r.InferenceErrors.WithLabelValues(KindOf(err)).Inc()
		return
	}
	r.Predictions.WithLabelValues(mode).Add(float64(records))
}

func (r *Registry) SetModelLoaded(loaded bool) {
	if r == nil {
		return
	}
	if loaded {
		r.ModelLoaded.Set(1)
	} else {
		r.ModelLoaded.Set(0)
	}
}

func (r *Registry) ObserveReload(err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.ModelReloads.WithLabelValues(result).Inc()
}
