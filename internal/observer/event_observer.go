package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisEvent represents a pipeline stage event
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	UserID         string                 `json:"user_id,omitempty"`
	ImageHash      string                 `json:"image_hash,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// AnalysisStarted when a request enters the pipeline
	AnalysisStarted EventType = "analysis_started"
	// PhotoFetched when the photo was downloaded and hashed
	PhotoFetched EventType = "photo_fetched"
	// DetectionCacheHit when detection was served from cache
	DetectionCacheHit EventType = "detection_cache_hit"
	// DetectionCompleted when the vision model returned
	DetectionCompleted EventType = "detection_completed"
	// NutritionResolved once per analyzed item
	NutritionResolved EventType = "nutrition_resolved"
	// FollowupsGenerated when clarification questions were produced
	FollowupsGenerated EventType = "followups_generated"
	// AnalysisCompleted when a response was assembled
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when the pipeline gave up
	AnalysisFailed EventType = "analysis_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

type requestObserverKey struct{}

// WithRequestObserver attaches an observer that only sees events of this
// request. It is notified synchronously so events arrive in order.
func WithRequestObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, requestObserverKey{}, obs)
}

func requestObserver(ctx context.Context) Observer {
	obs, _ := ctx.Value(requestObserverKey{}).(Observer)
	return obs
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ImageHash != "" {
		fields["image_hash"] = event.ImageHash
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Info("Meal analysis started")
	case AnalysisCompleted:
		entry.Info("Meal analysis completed")
	case AnalysisFailed:
		entry.Error("Meal analysis failed")
	case FollowupsGenerated:
		entry.Info("Follow-up questions generated")
	default:
		entry.Debug("Pipeline event")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Stats is the snapshot served by the stats endpoint
type Stats struct {
	TotalAnalyses      int64   `json:"total_analyses"`
	CompletedAnalyses  int64   `json:"completed_analyses"`
	FailedAnalyses     int64   `json:"failed_analyses"`
	DetectionCacheHits int64   `json:"detection_cache_hits"`
	ItemsResolved      int64   `json:"items_resolved"`
	FallbackEstimates  int64   `json:"fallback_estimates"`
	FollowupsAsked     int64   `json:"followups_asked"`
	AvgProcessingMs    float64 `json:"avg_processing_ms"`
}

// MetricsObserver collects counters from analysis events
type MetricsObserver struct {
	mu                  sync.RWMutex
	stats               Stats
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.stats.TotalAnalyses++
	case AnalysisCompleted:
		o.stats.CompletedAnalyses++
		o.totalProcessingTime += event.ProcessingTime
	case AnalysisFailed:
		o.stats.FailedAnalyses++
	case DetectionCacheHit:
		o.stats.DetectionCacheHits++
	case NutritionResolved:
		o.stats.ItemsResolved++
		if src, _ := event.Metadata["source"].(string); src == "fallback_estimate" {
			o.stats.FallbackEstimates++
		}
	case FollowupsGenerated:
		if n, ok := event.Metadata["count"].(int); ok {
			o.stats.FollowupsAsked += int64(n)
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := o.stats
	if s.CompletedAnalyses > 0 {
		avg := o.totalProcessingTime / time.Duration(s.CompletedAnalyses)
		s.AvgProcessingMs = float64(avg.Microseconds()) / 1000
	}
	return s
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies the request observer in order and all
// subscribed observers concurrently
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if obs := requestObserver(ctx); obs != nil {
		safeNotify(ctx, obs, event)
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			safeNotify(ctx, obs, event)
		}(observer)
	}
}

// Wait blocks until every dispatched notification has been handled
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}

func safeNotify(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
