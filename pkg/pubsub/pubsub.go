package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// Topics the dashboard subscribes to.
const (
	// TopicAnalysisStatus carries runner progress (loading, analyzing, ready, error).
	TopicAnalysisStatus = "analysis_status"
	// TopicReport carries a ReportSummary after every successful run.
	TopicReport = "report"
)

// ErrClosed is returned by a publisher after Close.
var ErrClosed = errors.New("publisher is closed")

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // e.g. "loading", "ready", "error"
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic, starts at 1
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string

	// Events is closed when the publisher shuts down.
	Events() <-chan Event

	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a subscription that ends when ctx is cancelled.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	Publish(topic string, eventType string, data interface{}) error

	Close() error
}

// ReportSummary is the compact payload of TopicReport events.
type ReportSummary struct {
	Status         string  `json:"status"`
	TotalRecords   int     `json:"total_records"`
	FlaggedRecords int     `json:"flagged_records"`
	Clusters       int     `json:"clusters"`
	Critical       int     `json:"critical"`
	IntegrityScore float64 `json:"integrity_score"`
}
