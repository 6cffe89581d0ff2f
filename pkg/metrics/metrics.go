package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics представляет систему метрик
type Metrics struct {
	// HTTP метрики
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Метрики движка проверок
	CheckExecutions *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	CheckRetries    *prometheus.CounterVec

	// Метрики очереди заданий
	JobsEnqueued      *prometheus.CounterVec
	JobsClaimed       *prometheus.CounterVec
	JobsCompleted     *prometheus.CounterVec
	JobRetries        *prometheus.CounterVec
	DeadLetteredJobs  *prometheus.CounterVec
	StaleJobsReleased prometheus.Counter
	JobDuration       *prometheus.HistogramVec
	QueueDepth        *prometheus.GaugeVec

	// Метрики планировщика
	SchedulingPasses prometheus.Counter
	TargetsScheduled prometheus.Counter

	// Метрики эскалации и уведомлений
	EscalationsTriggered *prometheus.CounterVec
	EscalationsResolved  prometheus.Counter
	Notifications        *prometheus.CounterVec

	// OpenTelemetry Tracer
	Tracer trace.Tracer `json:"-"`
}

// NewMetrics создает новую систему метрик
func NewMetrics(serviceName string) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: serviceName,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		CheckExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "engine",
				Name:      "check_executions_total",
				Help:      "Total number of check executions by check name and outcome status",
			},
			[]string{"check", "status"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: serviceName,
				Subsystem: "engine",
				Name:      "check_duration_seconds",
				Help:      "Duration of check executions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		CheckRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "engine",
				Name:      "check_retries_total",
				Help:      "Total number of check retry attempts",
			},
			[]string{"check"},
		),
		JobsEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "jobs_enqueued_total",
				Help:      "Total number of enqueued jobs",
			},
			[]string{"type", "priority"},
		),
		JobsClaimed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "jobs_claimed_total",
				Help:      "Total number of claimed jobs",
			},
			[]string{"type"},
		),
		JobsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "jobs_completed_total",
				Help:      "Total number of finished jobs by result",
			},
			[]string{"type", "result"},
		),
		JobRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "job_retries_total",
				Help:      "Total number of job retries",
			},
			[]string{"type"},
		),
		DeadLetteredJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "jobs_dead_lettered_total",
				Help:      "Total number of dead lettered jobs",
			},
			[]string{"type"},
		),
		StaleJobsReleased: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "stale_jobs_released_total",
				Help:      "Total number of stale processing jobs returned to pending",
			},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "job_duration_seconds",
				Help:      "Duration of job execution in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: serviceName,
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Current number of jobs by status",
			},
			[]string{"status"},
		),
		SchedulingPasses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "scheduler",
				Name:      "passes_total",
				Help:      "Total number of scheduling passes",
			},
		),
		TargetsScheduled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "scheduler",
				Name:      "targets_scheduled_total",
				Help:      "Total number of scan jobs emitted by the scheduler",
			},
		),
		EscalationsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "escalation",
				Name:      "triggered_total",
				Help:      "Total number of triggered escalations by level",
			},
			[]string{"level"},
		),
		EscalationsResolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "escalation",
				Name:      "resolved_total",
				Help:      "Total number of resolved escalations",
			},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Subsystem: "notification",
				Name:      "dispatches_total",
				Help:      "Total number of notification dispatches by channel and result",
			},
			[]string{"channel", "status"},
		),
		Tracer: otel.Tracer(serviceName),
	}

	register(
		m.RequestCount,
		m.RequestDuration,
		m.CheckExecutions,
		m.CheckDuration,
		m.CheckRetries,
		m.JobsEnqueued,
		m.JobsClaimed,
		m.JobsCompleted,
		m.JobRetries,
		m.DeadLetteredJobs,
		m.StaleJobsReleased,
		m.JobDuration,
		m.QueueDepth,
		m.SchedulingPasses,
		m.TargetsScheduled,
		m.EscalationsTriggered,
		m.EscalationsResolved,
		m.Notifications,
	)

	return m
}

// register регистрирует коллекторы, игнорируя повторную регистрацию
func register(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// GetHandler возвращает HTTP обработчик для эндпоинта /metrics
func (m *Metrics) GetHandler() http.Handler {
	return promhttp.Handler()
}

// Middleware создает middleware для сбора метрик
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Начинаем трассировку с OpenTelemetry
		_, span := m.Tracer.Start(r.Context(), r.URL.Path)
		defer span.End()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		m.RequestCount.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
			attribute.Int("http.status_code", wrapped.statusCode),
			attribute.Float64("http.duration", duration),
		)
	})
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InitializeOpenTelemetry инициализирует OpenTelemetry с провайдером трассировки
func InitializeOpenTelemetry(serviceName string) error {
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		)),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// ObserveCheck записывает метрики одного выполнения проверки
func (m *Metrics) ObserveCheck(check, status string, duration time.Duration) {
	m.CheckExecutions.WithLabelValues(check, status).Inc()
	m.CheckDuration.WithLabelValues(check).Observe(duration.Seconds())
}

// IncCheckRetry увеличивает счетчик повторов проверки
func (m *Metrics) IncCheckRetry(check string) {
	m.CheckRetries.WithLabelValues(check).Inc()
}

// IncJobEnqueued увеличивает счетчик поставленных в очередь заданий
func (m *Metrics) IncJobEnqueued(jobType, priority string) {
	m.JobsEnqueued.WithLabelValues(jobType, priority).Inc()
}

// IncJobClaimed увеличивает счетчик захваченных заданий
func (m *Metrics) IncJobClaimed(jobType string) {
	m.JobsClaimed.WithLabelValues(jobType).Inc()
}

// ObserveJob записывает результат и длительность выполнения задания
func (m *Metrics) ObserveJob(jobType, result string, duration time.Duration) {
	m.JobsCompleted.WithLabelValues(jobType, result).Inc()
	m.JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// IncJobRetry увеличивает счетчик повторов задания
func (m *Metrics) IncJobRetry(jobType string) {
	m.JobRetries.WithLabelValues(jobType).Inc()
}

// IncDeadLettered увеличивает счетчик dead lettered заданий
func (m *Metrics) IncDeadLettered(jobType string) {
	m.DeadLetteredJobs.WithLabelValues(jobType).Inc()
}

// AddStaleReleased увеличивает счетчик возвращенных в очередь зависших заданий
func (m *Metrics) AddStaleReleased(count int) {
	m.StaleJobsReleased.Add(float64(count))
}

// SetQueueDepth устанавливает глубину очереди для статуса
func (m *Metrics) SetQueueDepth(status string, depth float64) {
	m.QueueDepth.WithLabelValues(status).Set(depth)
}

// IncSchedulingPass увеличивает счетчик проходов планировщика
func (m *Metrics) IncSchedulingPass() {
	m.SchedulingPasses.Inc()
}

// AddTargetsScheduled увеличивает счетчик запланированных целей
func (m *Metrics) AddTargetsScheduled(count int) {
	m.TargetsScheduled.Add(float64(count))
}

// IncEscalationTriggered увеличивает счетчик эскалаций для уровня
func (m *Metrics) IncEscalationTriggered(level int) {
	m.EscalationsTriggered.WithLabelValues(fmt.Sprintf("%d", level)).Inc()
}

// IncEscalationResolved увеличивает счетчик разрешенных эскалаций
func (m *Metrics) IncEscalationResolved() {
	m.EscalationsResolved.Inc()
}

// IncNotification увеличивает счетчик отправленных уведомлений
func (m *Metrics) IncNotification(channel, status string) {
	m.Notifications.WithLabelValues(channel, status).Inc()
}
