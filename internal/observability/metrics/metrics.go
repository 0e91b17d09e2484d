package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the voice assistant.
type AssistantMetrics struct {
	wakeDetections    *prometheus.CounterVec
	wakeRestarts      *prometheus.CounterVec
	recognitionErrors *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	chatRequests      *prometheus.CounterVec
	chatLatency       *prometheus.HistogramVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		wakeDetections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "assistant",
			Name:      "wake_detections_total",
			Help:      "Wake word activations by matched trigger",
		}, []string{"trigger"}),
		wakeRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "assistant",
			Name:      "wake_restarts_total",
			Help:      "Wake word session restarts by outcome",
		}, []string{"outcome"}),
		recognitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "assistant",
			Name:      "recognition_errors_total",
			Help:      "Speech recognition errors by listener and code",
		}, []string{"listener", "code"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "assistant",
			Name:      "submissions_total",
			Help:      "Messages submitted to the chat pipeline by source",
		}, []string{"source"}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "assistant",
			Name:      "chat_requests_total",
			Help:      "Chat endpoint calls by outcome",
		}, []string{"outcome"}),
		chatLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "assistant",
			Name:      "chat_latency_seconds",
			Help:      "Latency of chat endpoint calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.wakeDetections, m.wakeRestarts, m.recognitionErrors, m.submissions, m.chatRequests, m.chatLatency)
	return m
}

func (m *AssistantMetrics) ObserveWakeDetection(trigger string) {
	if m == nil {
		return
	}
	m.wakeDetections.WithLabelValues(trigger).Inc()
}

func (m *AssistantMetrics) ObserveWakeRestart(outcome string) {
	if m == nil {
		return
	}
	m.wakeRestarts.WithLabelValues(outcome).Inc()
}

func (m *AssistantMetrics) ObserveRecognitionError(listener, code string) {
	if m == nil {
		return
	}
	m.recognitionErrors.WithLabelValues(listener, code).Inc()
}

func (m *AssistantMetrics) ObserveSubmission(source string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(source).Inc()
}

func (m *AssistantMetrics) ObserveChat(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(outcome).Inc()
	m.chatLatency.WithLabelValues(outcome).Observe(seconds)
}
