package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskfocus"

// Metrics регистрирует счётчики в собственном реестре, а не в глобальном.
type Metrics struct {
	registry *prometheus.Registry

	tasksCreated     prometheus.Counter
	validationFailed *prometheus.CounterVec
	orderConflicts   prometheus.Counter
	dayTasks         prometheus.Gauge
	dayEstimatedMins prometheus.Gauge
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Количество созданных задач.",
		}),
		validationFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Отклонённые при валидации задачи по полю.",
		}, []string{"field"}),
		orderConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_conflicts_total",
			Help:      "Конфликты порядкового номера при сохранении.",
		}),
		dayTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "day_tasks",
			Help:      "Количество задач на текущий день.",
		}),
		dayEstimatedMins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "day_estimated_minutes",
			Help:      "Суммарное оценочное время задач текущего дня.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP запросы по маршруту и статусу.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность обработки HTTP запросов.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tasksCreated,
		m.validationFailed,
		m.orderConflicts,
		m.dayTasks,
		m.dayEstimatedMins,
		m.requestsTotal,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TaskCreated() {
	m.tasksCreated.Inc()
}

func (m *Metrics) ValidationFailed(field string) {
	m.validationFailed.WithLabelValues(field).Inc()
}

func (m *Metrics) OrderConflict() {
	m.orderConflicts.Inc()
}

// SetDayStats публикует сводку по текущему дню
func (m *Metrics) SetDayStats(tasks int, estimatedMinutes int) {
	m.dayTasks.Set(float64(tasks))
	m.dayEstimatedMins.Set(float64(estimatedMinutes))
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}
