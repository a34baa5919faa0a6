// Package server exposes the alarm import and trend API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mervekesknn/db-protection-insight/internal/archive"
	"github.com/mervekesknn/db-protection-insight/internal/export"
	"github.com/mervekesknn/db-protection-insight/internal/fetch"
	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
	"github.com/mervekesknn/db-protection-insight/internal/snapshot"
	"github.com/mervekesknn/db-protection-insight/internal/storage"
	"github.com/mervekesknn/db-protection-insight/internal/trend"
)

// Handler serves the alarm import and trend endpoints. The storage,
// cache, export, and archive collaborators are optional; a nil
// collaborator disables that side effect.
type Handler struct {
	store      *snapshot.Store
	cache      *Cache
	writer     *storage.BatchWriter
	publisher  *export.Publisher
	archiver   *archive.Client
	fetcher    *fetch.Client
	maxPayload int
	topDefault int
	startTime  time.Time

	importsTotal uint64
	rowsTotal    uint64
}

// NewHandler creates a Handler around the snapshot store.
func NewHandler(store *snapshot.Store) *Handler {
	return &Handler{
		store:      store,
		maxPayload: 10 * 1024 * 1024, // 10MB default
		topDefault: 20,
		startTime:  time.Now(),
	}
}

// WithMaxPayload sets the maximum import payload size.
func (h *Handler) WithMaxPayload(size int) *Handler {
	h.maxPayload = size
	return h
}

// WithTopDefault sets the default result cap for trend endpoints.
func (h *Handler) WithTopDefault(n int) *Handler {
	h.topDefault = n
	return h
}

// WithCache attaches the Redis snapshot cache.
func (h *Handler) WithCache(c *Cache) *Handler {
	h.cache = c
	return h
}

// WithWriter attaches the ClickHouse batch writer.
func (h *Handler) WithWriter(w *storage.BatchWriter) *Handler {
	h.writer = w
	return h
}

// WithPublisher attaches the Kafka record publisher.
func (h *Handler) WithPublisher(p *export.Publisher) *Handler {
	h.publisher = p
	return h
}

// WithArchiver attaches the S3 raw-upload archiver.
func (h *Handler) WithArchiver(a *archive.Client) *Handler {
	h.archiver = a
	return h
}

// WithFetcher attaches the upstream alarm API client.
func (h *Handler) WithFetcher(f *fetch.Client) *Handler {
	h.fetcher = f
	return h
}

// Routes registers all endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/alarms/import", h.HandleImport)
	mux.HandleFunc("POST /v1/alarms/sync", h.HandleSync)
	mux.HandleFunc("GET /v1/rules", h.HandleRules)
	mux.HandleFunc("GET /v1/imports/{id}", h.HandleImportByID)
	mux.HandleFunc("GET /v1/trends/rules", h.HandleRuleTrends)
	mux.HandleFunc("GET /v1/trends/users", h.HandleUserTrends)
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)
}

// ImportResponse is the response for an import or sync.
type ImportResponse struct {
	Success   bool   `json:"success"`
	ImportID  string `json:"importId"`
	Source    string `json:"source"`
	RowCount  int    `json:"rowCount"`
	RuleCount int    `json:"ruleCount"`
	RequestID string `json:"request_id"`
}

// HandleImport handles POST /v1/alarms/import. The body is either a
// multipart upload with a "file" part or raw tabular text.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxPayload))

	raw, source, err := readImportBody(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large", requestID)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	records := pipeline.BuildRecords(string(raw))
	if len(records) == 0 {
		respondError(w, http.StatusBadRequest, "no alarm rows found in payload", requestID)
		return
	}

	snap := h.installSnapshot(r.Context(), source, raw, records)

	respondJSON(w, http.StatusOK, ImportResponse{
		Success:   true,
		ImportID:  snap.ImportID,
		Source:    snap.Source,
		RowCount:  snap.RowCount,
		RuleCount: len(snap.Rules),
		RequestID: requestID,
	})
}

// HandleSync handles POST /v1/alarms/sync, pulling records from the
// upstream alarm API instead of an uploaded file.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	if h.fetcher == nil {
		respondError(w, http.StatusServiceUnavailable, "upstream fetch is not configured", requestID)
		return
	}

	fetched, err := h.fetcher.FetchAlarms(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("upstream fetch failed: %v", err), requestID)
		return
	}
	if len(fetched) == 0 {
		respondError(w, http.StatusBadRequest, "upstream returned no alarm records", requestID)
		return
	}

	rows := make([]pipeline.RawRow, 0, len(fetched))
	for _, rec := range fetch.ToRecords(fetched) {
		rows = append(rows, pipeline.NormalizeRecord(rec))
	}
	records := pipeline.ResolveAll(rows)

	snap := h.installSnapshot(r.Context(), "sync", nil, records)

	respondJSON(w, http.StatusOK, ImportResponse{
		Success:   true,
		ImportID:  snap.ImportID,
		Source:    snap.Source,
		RowCount:  snap.RowCount,
		RuleCount: len(snap.Rules),
		RequestID: requestID,
	})
}

// installSnapshot aggregates records, replaces the current snapshot,
// and fans out to the optional collaborators. Side effects are best
// effort; a failed archive or publish never fails the import.
func (h *Handler) installSnapshot(ctx context.Context, source string, raw []byte, records []pipeline.ResolvedRecord) *snapshot.Snapshot {
	importID := uuid.New().String()
	rules := pipeline.Aggregate(records)

	snap := &snapshot.Snapshot{
		ImportID:   importID,
		Source:     source,
		ImportedAt: time.Now().UTC(),
		RowCount:   len(records),
		Rules:      rules,
		Report:     trend.Analyze(rules),
	}
	h.store.Replace(snap)

	atomic.AddUint64(&h.importsTotal, 1)
	atomic.AddUint64(&h.rowsTotal, uint64(len(records)))

	slog.Info("snapshot installed",
		"import_id", importID,
		"source", source,
		"rows", len(records),
		"rules", len(rules),
	)

	if h.writer != nil {
		if err := h.writer.Write(storage.RowsFromRecords(importID, records)...); err != nil {
			slog.Error("failed to persist alarm rows", "import_id", importID, "error", err)
		} else if err := h.writer.RecordImport(ctx, importID, source, len(records), len(rules)); err != nil {
			slog.Error("failed to record import", "import_id", importID, "error", err)
		}
	}

	if h.archiver != nil && len(raw) > 0 {
		if _, err := h.archiver.ArchiveImport(ctx, importID, source, raw, snap.ImportedAt); err != nil {
			slog.Error("failed to archive raw upload", "import_id", importID, "error", err)
		}
	}

	if h.publisher != nil {
		if err := h.publisher.PublishImport(ctx, importID, records); err != nil {
			slog.Error("failed to publish records", "import_id", importID, "error", err)
		}
	}

	if h.cache != nil {
		if err := h.cache.StoreSnapshot(ctx, snap); err != nil {
			slog.Error("failed to cache snapshot", "import_id", importID, "error", err)
		}
	}

	return snap
}

// RulesResponse is the response for GET /v1/rules.
type RulesResponse struct {
	Success    bool                      `json:"success"`
	ImportID   string                    `json:"importId"`
	ImportedAt time.Time                 `json:"importedAt"`
	RowCount   int                       `json:"rowCount"`
	Rules      []*pipeline.RuleAggregate `json:"rules"`
}

// HandleRules handles GET /v1/rules.
func (h *Handler) HandleRules(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	if snap == nil {
		respondError(w, http.StatusNotFound, "no import yet", uuid.New().String())
		return
	}

	respondJSON(w, http.StatusOK, RulesResponse{
		Success:    true,
		ImportID:   snap.ImportID,
		ImportedAt: snap.ImportedAt,
		RowCount:   snap.RowCount,
		Rules:      snap.Rules,
	})
}

// HandleImportByID handles GET /v1/imports/{id}, serving past imports
// from the Redis cache. The id "latest" resolves to the most recent
// cached import.
func (h *Handler) HandleImportByID(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	if h.cache == nil {
		respondError(w, http.StatusServiceUnavailable, "import cache is not configured", requestID)
		return
	}

	snap, err := h.cache.GetImport(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			respondError(w, http.StatusNotFound, "import not found", requestID)
			return
		}
		respondError(w, http.StatusInternalServerError, "cache lookup failed", requestID)
		return
	}

	respondJSON(w, http.StatusOK, RulesResponse{
		Success:    true,
		ImportID:   snap.ImportID,
		ImportedAt: snap.ImportedAt,
		RowCount:   snap.RowCount,
		Rules:      snap.Rules,
	})
}

// RuleTrendView is one rule in a trend response, with range-filtered
// totals and the daily chart series.
type RuleTrendView struct {
	ID                 string            `json:"id"`
	RuleName           string            `json:"ruleName"`
	Severity           pipeline.Severity `json:"severity"`
	TriggerCount       int               `json:"triggerCount"`
	AffectedUsersCount int               `json:"affectedUsersCount"`
	RangeTotal         int               `json:"rangeTotal"`
	Series             []trend.Point     `json:"series"`
}

// UserTrendView is one user in a trend response.
type UserTrendView struct {
	Name         string        `json:"name"`
	Team         string        `json:"team"`
	TriggerCount int           `json:"triggerCount"`
	RuleCount    int           `json:"ruleCount"`
	RangeTotal   int           `json:"rangeTotal"`
	Series       []trend.Point `json:"series"`
}

// TrendResponse is the response for the trend endpoints.
type TrendResponse struct {
	Success  bool            `json:"success"`
	ImportID string          `json:"importId"`
	Rules    []RuleTrendView `json:"rules,omitempty"`
	Users    []UserTrendView `json:"users,omitempty"`
}

// HandleRuleTrends handles GET /v1/trends/rules with optional q, start,
// end, and limit query params. Range bounds are inclusive calendar days.
func (h *Handler) HandleRuleTrends(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	snap := h.store.Current()
	if snap == nil {
		respondError(w, http.StatusNotFound, "no import yet", requestID)
		return
	}

	q, start, end, limit, err := h.trendParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	views := make([]RuleTrendView, 0, limit)
	for _, rs := range snap.Report.TopRules(limit, q) {
		views = append(views, RuleTrendView{
			ID:                 rs.ID,
			RuleName:           rs.RuleName,
			Severity:           rs.Severity,
			TriggerCount:       rs.TriggerCount,
			AffectedUsersCount: rs.AffectedUsersCount,
			RangeTotal:         rs.Index.TotalInRange(start, end),
			Series:             rs.Index.Series(start, end),
		})
	}

	respondJSON(w, http.StatusOK, TrendResponse{
		Success:  true,
		ImportID: snap.ImportID,
		Rules:    views,
	})
}

// HandleUserTrends handles GET /v1/trends/users.
func (h *Handler) HandleUserTrends(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	snap := h.store.Current()
	if snap == nil {
		respondError(w, http.StatusNotFound, "no import yet", requestID)
		return
	}

	q, start, end, limit, err := h.trendParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	views := make([]UserTrendView, 0, limit)
	for _, us := range snap.Report.TopUsers(limit, q) {
		views = append(views, UserTrendView{
			Name:         us.Name,
			Team:         us.Team,
			TriggerCount: us.TriggerCount,
			RuleCount:    us.RuleCount,
			RangeTotal:   us.Index.TotalInRange(start, end),
			Series:       us.Index.Series(start, end),
		})
	}

	respondJSON(w, http.StatusOK, TrendResponse{
		Success:  true,
		ImportID: snap.ImportID,
		Users:    views,
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()

	resp := map[string]any{
		"status":         "healthy",
		"has_snapshot":   snap != nil,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}
	if snap != nil {
		resp["import_id"] = snap.ImportID
		resp["imported_at"] = snap.ImportedAt
	}

	respondJSON(w, http.StatusOK, resp)
}

// Metrics handles GET /metrics (Prometheus format).
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var rulesCurrent, usersCurrent int
	if snap := h.store.Current(); snap != nil {
		rulesCurrent = len(snap.Rules)
		usersCurrent = len(snap.Report.Users)
	}

	fmt.Fprintf(w, "# HELP alarmscope_imports_total Total number of imports processed\n")
	fmt.Fprintf(w, "# TYPE alarmscope_imports_total counter\n")
	fmt.Fprintf(w, "alarmscope_imports_total %d\n\n", atomic.LoadUint64(&h.importsTotal))

	fmt.Fprintf(w, "# HELP alarmscope_rows_total Total alarm rows imported\n")
	fmt.Fprintf(w, "# TYPE alarmscope_rows_total counter\n")
	fmt.Fprintf(w, "alarmscope_rows_total %d\n\n", atomic.LoadUint64(&h.rowsTotal))

	fmt.Fprintf(w, "# HELP alarmscope_rules_current Rules in the current snapshot\n")
	fmt.Fprintf(w, "# TYPE alarmscope_rules_current gauge\n")
	fmt.Fprintf(w, "alarmscope_rules_current %d\n\n", rulesCurrent)

	fmt.Fprintf(w, "# HELP alarmscope_users_current Users in the current snapshot\n")
	fmt.Fprintf(w, "# TYPE alarmscope_users_current gauge\n")
	fmt.Fprintf(w, "alarmscope_users_current %d\n\n", usersCurrent)

	fmt.Fprintf(w, "# HELP alarmscope_uptime_seconds Uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE alarmscope_uptime_seconds gauge\n")
	fmt.Fprintf(w, "alarmscope_uptime_seconds %d\n", int(time.Since(h.startTime).Seconds()))
}

// trendParams parses the shared trend query parameters.
func (h *Handler) trendParams(r *http.Request) (q string, start, end *time.Time, limit int, err error) {
	query := r.URL.Query()
	q = query.Get("q")

	limit = h.topDefault
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return "", nil, nil, 0, fmt.Errorf("invalid limit %q", raw)
		}
	}

	if start, err = parseDateParam(query.Get("start")); err != nil {
		return "", nil, nil, 0, err
	}
	if end, err = parseDateParam(query.Get("end")); err != nil {
		return "", nil, nil, 0, err
	}
	return q, start, end, limit, nil
}

// parseDateParam parses a YYYY-MM-DD query parameter; empty means open.
func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

// readImportBody extracts raw tabular text from a multipart upload or a
// plain text body.
func readImportBody(r *http.Request) (raw []byte, source string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, header, err := formFile(r)
		if err != nil {
			return nil, "", err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	return data, "raw", nil
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("missing file part: %w", err)
	}
	return file, header, nil
}
