package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 摘要服务调用延迟（毫秒）
	SummarizerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "summarizer_call_latency_ms",
			Help:    "Summarizer call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 消息处理计数
	MessageProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_message_processed_count",
			Help: "Total number of inbound messages processed",
		},
		[]string{"status"}, // status: processed, skipped, failed
	)

	// 分类结果计数
	MessageClassifiedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_message_classified_count",
			Help: "Total number of messages per category",
		},
		[]string{"category"},
	)

	// 提醒发送计数
	ReminderSentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_reminder_sent_count",
			Help: "Total number of reminders handed to the notifier",
		},
		[]string{"status"}, // status: delivered, failed
	)

	// 每日频道摘要计数
	ChannelDigestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_channel_digest_count",
			Help: "Total number of daily channel digests generated",
		},
		[]string{"status"}, // status: posted, empty, failed
	)

	// 摘要降级计数
	SummaryFallbackCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_summary_fallback_count",
			Help: "Total number of summaries replaced by the placeholder",
		},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordSummarizerLatency 记录摘要服务调用延迟
func RecordSummarizerLatency(status string, duration time.Duration) {
	SummarizerLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementMessageProcessed 增加消息处理计数
func IncrementMessageProcessed(status string) {
	MessageProcessedCount.WithLabelValues(status).Inc()
}

// IncrementMessageClassified 按分类增加计数
func IncrementMessageClassified(category string) {
	MessageClassifiedCount.WithLabelValues(category).Inc()
}

// IncrementReminderSent 增加提醒计数
func IncrementReminderSent(status string) {
	ReminderSentCount.WithLabelValues(status).Inc()
}

// IncrementSummaryFallback 增加摘要降级计数
func IncrementSummaryFallback() {
	SummaryFallbackCount.Inc()
}

// IncrementChannelDigest 增加每日频道摘要计数
func IncrementChannelDigest(status string) {
	ChannelDigestCount.WithLabelValues(status).Inc()
}
