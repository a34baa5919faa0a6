package storage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
)

// AlarmRow is one resolved alarm record flattened for insertion.
// EventTime is nil when the source date never parsed; the raw text is
// kept either way.
type AlarmRow struct {
	ImportID  string
	RuleName  string
	UserName  string
	Team      string
	EventTime *time.Time
	RawDate   string
	Activity  string
	Severity  string
	Count     uint32
}

// RowsFromRecords flattens resolved records for one import.
func RowsFromRecords(importID string, records []pipeline.ResolvedRecord) []AlarmRow {
	rows := make([]AlarmRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, AlarmRow{
			ImportID:  importID,
			RuleName:  rec.RuleName,
			UserName:  rec.User,
			Team:      rec.Team,
			EventTime: rec.Date,
			RawDate:   rec.RawDate,
			Activity:  rec.Activity,
			Severity:  string(rec.Severity),
			Count:     uint32(rec.Count),
		})
	}
	return rows
}

// BatchWriterConfig holds configuration for the batch writer.
type BatchWriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// DefaultBatchWriterConfig returns the default batch writer configuration.
func DefaultBatchWriterConfig() BatchWriterConfig {
	return BatchWriterConfig{
		BatchSize:     1000,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Second,
	}
}

// BatchWriter buffers alarm rows and inserts them in batches, either
// when the buffer fills or on a flush interval.
type BatchWriter struct {
	client *ClickHouseClient
	config BatchWriterConfig

	buffer []AlarmRow
	mu     sync.Mutex

	flushTimer *time.Timer
	closed     bool

	totalWritten uint64
	totalFailed  uint64
	batchCount   uint64
}

// NewBatchWriter creates a new BatchWriter.
func NewBatchWriter(client *ClickHouseClient, cfg BatchWriterConfig) *BatchWriter {
	bw := &BatchWriter{
		client: client,
		config: cfg,
		buffer: make([]AlarmRow, 0, cfg.BatchSize),
	}

	bw.flushTimer = time.AfterFunc(cfg.FlushInterval, bw.timerFlush)

	return bw
}

// Write adds rows to the batch, flushing when the buffer is full.
func (bw *BatchWriter) Write(rows ...AlarmRow) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.closed {
		return ErrWriterClosed
	}

	bw.buffer = append(bw.buffer, rows...)

	if len(bw.buffer) >= bw.config.BatchSize {
		return bw.flushLocked()
	}

	return nil
}

func (bw *BatchWriter) timerFlush() {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.closed {
		return
	}

	if len(bw.buffer) > 0 {
		if err := bw.flushLocked(); err != nil {
			slog.Error("timer flush failed", "error", err)
		}
	}

	bw.flushTimer.Reset(bw.config.FlushInterval)
}

// flushLocked flushes the buffer with retries. Caller must hold the lock.
func (bw *BatchWriter) flushLocked() error {
	if len(bw.buffer) == 0 {
		return nil
	}

	rows := bw.buffer
	bw.buffer = make([]AlarmRow, 0, bw.config.BatchSize)

	var lastErr error
	for attempt := 0; attempt <= bw.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(bw.config.RetryDelay * time.Duration(attempt))
		}

		if err := bw.insertBatch(rows); err != nil {
			lastErr = err
			slog.Warn("batch insert failed, retrying",
				"attempt", attempt+1,
				"max_retries", bw.config.MaxRetries,
				"error", err,
			)
			continue
		}

		atomic.AddUint64(&bw.totalWritten, uint64(len(rows)))
		atomic.AddUint64(&bw.batchCount, 1)
		return nil
	}

	atomic.AddUint64(&bw.totalFailed, uint64(len(rows)))
	return WrapBatchError("alarm_logs", lastErr, bw.config.MaxRetries)
}

func (bw *BatchWriter) insertBatch(rows []AlarmRow) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch, err := bw.client.PrepareBatch(ctx, `
		INSERT INTO alarm_logs (
			import_id, rule_name, user_name, team,
			event_time, raw_date, activity, severity, trigger_count
		)
	`)
	if err != nil {
		return WrapQueryError("PrepareBatch", "alarm_logs", err)
	}

	for _, row := range rows {
		err := batch.Append(
			row.ImportID,
			row.RuleName,
			row.UserName,
			row.Team,
			row.EventTime,
			row.RawDate,
			row.Activity,
			row.Severity,
			row.Count,
		)
		if err != nil {
			return WrapQueryError("Append", "alarm_logs", err)
		}
	}

	if err := batch.Send(); err != nil {
		return WrapQueryError("Send", "alarm_logs", err)
	}

	slog.Debug("batch inserted", "count", len(rows))
	return nil
}

// RecordImport writes the provenance row for one import.
func (bw *BatchWriter) RecordImport(ctx context.Context, importID, source string, rowCount, ruleCount int) error {
	err := bw.client.Exec(ctx,
		"INSERT INTO imports (import_id, source, row_count, rule_count) VALUES (?, ?, ?, ?)",
		importID, source, uint32(rowCount), uint32(ruleCount),
	)
	if err != nil {
		return WrapQueryError("Insert", "imports", err)
	}
	return nil
}

// Flush forces a flush of the current buffer.
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked()
}

// Close stops the flush timer and flushes remaining rows.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	bw.closed = true
	rows := len(bw.buffer)
	bw.mu.Unlock()

	bw.flushTimer.Stop()

	if rows == 0 {
		return nil
	}

	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked()
}

// Metrics returns batch writer statistics.
func (bw *BatchWriter) Metrics() BatchWriterMetrics {
	return BatchWriterMetrics{
		Written: atomic.LoadUint64(&bw.totalWritten),
		Failed:  atomic.LoadUint64(&bw.totalFailed),
		Batches: atomic.LoadUint64(&bw.batchCount),
		Pending: bw.pendingCount(),
	}
}

func (bw *BatchWriter) pendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// BatchWriterMetrics holds batch writer statistics.
type BatchWriterMetrics struct {
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Batches uint64 `json:"batches"`
	Pending int    `json:"pending"`
}
