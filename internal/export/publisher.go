// Package export publishes resolved alarm records to Kafka so downstream
// consumers (correlation jobs, long term analytics) see every imported
// row without querying the API.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
)

// ErrPublisherClosed is returned for publishes after Close.
var ErrPublisherClosed = fmt.Errorf("export: publisher is closed")

// Config holds publisher settings.
type Config struct {
	Brokers    []string      `yaml:"brokers"`
	Topic      string        `yaml:"topic"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Record is the wire shape of one published alarm row.
type Record struct {
	ImportID   string     `json:"importId"`
	RuleName   string     `json:"ruleName"`
	UserName   string     `json:"userName"`
	Team       string     `json:"team"`
	EventTime  *time.Time `json:"eventTime,omitempty"`
	RawDate    string     `json:"rawDate"`
	Activity   string     `json:"activity"`
	Severity   string     `json:"severity"`
	Count      int        `json:"count"`
	ExportedAt time.Time  `json:"exportedAt"`
}

// Publisher writes alarm records to a Kafka topic with retries.
type Publisher struct {
	writer *kafka.Writer
	config Config
	logger *slog.Logger
	closed atomic.Bool

	published atomic.Int64
	failed    atomic.Int64
}

// NewPublisher creates a publisher for the configured topic.
func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:        kafka.TCP(cfg.Brokers...),
		Topic:       cfg.Topic,
		Balancer:    &kafka.LeastBytes{},
		MaxAttempts: 1, // retries handled here, with backoff
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}

	logger.Info("kafka publisher initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return &Publisher{
		writer: writer,
		config: cfg,
		logger: logger,
	}
}

// PublishImport publishes every record of one import, keyed by rule name
// so per-rule ordering holds within a partition.
func (p *Publisher) PublishImport(ctx context.Context, importID string, records []pipeline.ResolvedRecord) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	messages := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		wire := Record{
			ImportID:   importID,
			RuleName:   rec.RuleName,
			UserName:   rec.User,
			Team:       rec.Team,
			EventTime:  rec.Date,
			RawDate:    rec.RawDate,
			Activity:   rec.Activity,
			Severity:   string(rec.Severity),
			Count:      rec.Count,
			ExportedAt: now,
		}
		value, err := json.Marshal(wire)
		if err != nil {
			return fmt.Errorf("export: failed to marshal record: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(rec.RuleName),
			Value: value,
			Time:  now,
		})
	}

	return p.produce(ctx, messages)
}

func (p *Publisher) produce(ctx context.Context, messages []kafka.Message) error {
	var lastErr error
	backoff := p.config.RetryDelay

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying kafka produce",
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := p.writer.WriteMessages(ctx, messages...)
		if err == nil {
			p.published.Add(int64(len(messages)))
			p.logger.Debug("published records",
				"count", len(messages),
				"topic", p.config.Topic,
			)
			return nil
		}

		lastErr = err
		p.logger.Warn("kafka produce failed",
			"error", err,
			"attempt", attempt+1,
			"max_attempts", p.config.MaxRetries+1,
		)
	}

	p.failed.Add(int64(len(messages)))
	return fmt.Errorf("export: failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// Metrics returns publish counters.
func (p *Publisher) Metrics() (published, failed int64) {
	return p.published.Load(), p.failed.Load()
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.logger.Info("closing kafka publisher",
		"records_published", p.published.Load(),
	)

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("export: failed to close publisher: %w", err)
	}
	return nil
}
